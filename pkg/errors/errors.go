package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// WithMessage 复制错误码并替换提示信息，用于透传后端返回的文案。
func (d Definition) WithMessage(message string) Definition {
	if message == "" {
		return d
	}
	return Definition{Code: d.Code, Message: message}
}

// Is 按错误码比较，WithMessage 派生的错误仍然匹配原始定义。
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	if !ok {
		return false
	}
	return d.Code == t.Code
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please try again later"}
	NotFound        = Definition{Code: "NOT_FOUND", Message: "Resource not found"}
	Internal        = Definition{Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error, please try again later"}
)

// 认证相关错误。
var (
	CSRFInvalid        = Definition{Code: "CSRF_INVALID", Message: "Form expired, please reload the page"}
	InvalidCredentials = Definition{Code: "INVALID_CREDENTIALS", Message: "Email or password is incorrect"}
	Unauthorized       = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	InvalidUserID      = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
)

// 注册向导错误。
var (
	SignupStepInvalid      = Definition{Code: "SIGNUP_STEP_INVALID", Message: "Unknown sign-up step"}
	SignupStepLocked       = Definition{Code: "SIGNUP_STEP_LOCKED", Message: "Please complete the previous steps first"}
	SignupValidationFailed = Definition{Code: "SIGNUP_VALIDATION_FAILED", Message: "Some fields need your attention"}
	SignupInputInvalid     = Definition{Code: "SIGNUP_INPUT_INVALID", Message: "Please check your input"}
	SignupUploadFailed     = Definition{Code: "SIGNUP_UPLOAD_FAILED", Message: "Profile image upload failed, please try again"}
	SignupCreateFailed     = Definition{Code: "SIGNUP_CREATE_FAILED", Message: "Sign-up failed, please try again"}
	SignupNotCompleted     = Definition{Code: "SIGNUP_NOT_COMPLETED", Message: "Sign-up has not been completed yet"}
	SignupInProgress       = Definition{Code: "SIGNUP_IN_PROGRESS", Message: "Sign-up is already being processed"}
)

// 账户模块错误。
var (
	AccountEmailTaken    = Definition{Code: "ACCOUNT_EMAIL_TAKEN", Message: "This email is already registered"}
	AccountNicknameTaken = Definition{Code: "ACCOUNT_NICKNAME_TAKEN", Message: "This nickname is already in use"}
	AccountNotFound      = Definition{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found"}
)

// 文件上传错误。
var (
	UploadMissingFile = Definition{Code: "UPLOAD_MISSING_FILE", Message: "No file was uploaded"}
	UploadTooLarge    = Definition{Code: "UPLOAD_TOO_LARGE", Message: "File is too large"}
	UploadUnsupported = Definition{Code: "UPLOAD_UNSUPPORTED", Message: "Only image files are allowed"}
)

// token 相关的内部错误，不直接返回给前端
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// SkipMessageError 表示消息已被处理，消费者应直接 ack
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return e.Reason
}

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:         InvalidRequest,
	TooManyRequests.Code:        TooManyRequests,
	NotFound.Code:               NotFound,
	Internal.Code:               Internal,
	CSRFInvalid.Code:            CSRFInvalid,
	InvalidCredentials.Code:     InvalidCredentials,
	Unauthorized.Code:           Unauthorized,
	InvalidUserID.Code:          InvalidUserID,
	SignupStepInvalid.Code:      SignupStepInvalid,
	SignupStepLocked.Code:       SignupStepLocked,
	SignupValidationFailed.Code: SignupValidationFailed,
	SignupInputInvalid.Code:     SignupInputInvalid,
	SignupUploadFailed.Code:     SignupUploadFailed,
	SignupCreateFailed.Code:     SignupCreateFailed,
	SignupNotCompleted.Code:     SignupNotCompleted,
	SignupInProgress.Code:       SignupInProgress,
	AccountEmailTaken.Code:      AccountEmailTaken,
	AccountNicknameTaken.Code:   AccountNicknameTaken,
	AccountNotFound.Code:        AccountNotFound,
	UploadMissingFile.Code:      UploadMissingFile,
	UploadTooLarge.Code:         UploadTooLarge,
	UploadUnsupported.Code:      UploadUnsupported,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// As 取出错误链中的 Definition
func As(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}
