package wizard

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	mobilePattern  = regexp.MustCompile(`^010\d{8}$`)
	letterPattern  = regexp.MustCompile(`[A-Za-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

// Result 校验结果，每个字段只保留第一条失败信息
type Result struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func pass() Result {
	return Result{Valid: true}
}

func fail(field, msg string) Result {
	return Result{FieldErrors: map[string]string{field: msg}}
}

// stepRule 步骤表，AlwaysValid 的步骤不做任何校验
type stepRule struct {
	Step        int
	Name        string
	AlwaysValid bool
	accepts     func(data any) (any, bool)
}

var stepTable = map[int]stepRule{
	StepTerms: {
		Step: StepTerms,
		Name: "terms",
		accepts: func(data any) (any, bool) {
			switch d := data.(type) {
			case Step1Data:
				return d, true
			case *Step1Data:
				if d != nil {
					return *d, true
				}
			}
			return nil, false
		},
	},
	StepAccount: {
		Step: StepAccount,
		Name: "account",
		accepts: func(data any) (any, bool) {
			switch d := data.(type) {
			case Step2Data:
				return d, true
			case *Step2Data:
				if d != nil {
					return *d, true
				}
			}
			return nil, false
		},
	},
	StepProfile: {
		Step:        StepProfile,
		Name:        "profile",
		AlwaysValid: true,
		accepts: func(data any) (any, bool) {
			switch d := data.(type) {
			case Step3Data:
				return d, true
			case *Step3Data:
				if d != nil {
					return *d, true
				}
			}
			return nil, false
		},
	},
}

// StepName 步骤名，用于日志和指标
func StepName(step int) string {
	if rule, ok := stepTable[step]; ok {
		return rule.Name
	}
	return "unknown"
}

// AlwaysValid 可选步骤
func AlwaysValid(step int) bool {
	return stepTable[step].AlwaysValid
}

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误字段名使用 json tag
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return letterPattern.MatchString(s) && digitPattern.MatchString(s) && specialPattern.MatchString(s)
	})
	_ = v.RegisterValidation("mobile_010", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})

	return &Validator{v: v}
}

// Validate 校验指定步骤的数据
func (v *Validator) Validate(step int, data any) Result {
	rule, ok := stepTable[step]
	if !ok {
		return fail("step", "Unknown sign-up step")
	}

	value, ok := rule.accepts(data)
	if !ok {
		return fail("step", "Unexpected data for step "+strconv.Itoa(step))
	}
	if rule.AlwaysValid {
		return pass()
	}

	err := v.v.Struct(value)
	if err == nil {
		return pass()
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fail("step", err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return Result{FieldErrors: fields}
}

// ValidEmail 可用性检查前的格式校验
func (v *Validator) ValidEmail(email string) bool {
	return v.v.Var(email, "required,email") == nil
}

// ValidNickname 昵称至少 2 个字符
func (v *Validator) ValidNickname(nickname string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(nickname)) >= 2
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "agreeTerms":
		return "You must agree to the terms of service"
	case "agreePrivacy":
		return "You must agree to the privacy policy"
	case "confirmPassword":
		if fe.Tag() == "eqfield" {
			return "Passwords do not match"
		}
	case "phone":
		if fe.Tag() == "mobile_010" {
			return "Phone number must start with 010 followed by 8 digits"
		}
	}

	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "password_strength":
		return "Password must contain a letter, a digit and one of @$!%*?&"
	case "trimmed_min":
		return "Must be at least " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
