package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"GreenNest/internal/model/dto"
	"GreenNest/internal/objectstore"
	"GreenNest/internal/service"
	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/response"
	"GreenNest/utils"
)

// AccountHandler 账户 REST 接口，向导的远程 AccountAPI 即调用这里
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// EmailAvailability 邮箱是否可注册
// GET /v1/accounts/email-availability?email=
func (h *AccountHandler) EmailAvailability(ctx context.Context, c *app.RequestContext) {
	email := strings.TrimSpace(c.Query("email"))
	if !utils.ValidateEmail(email) {
		response.ValidationError(ctx, c, errors.InvalidRequest, map[string]string{"email": "email"})
		return
	}

	ok, err := h.accounts.EmailAvailable(ctx, email)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.AvailabilityResponse{Available: ok})
}

// NicknameAvailability 昵称是否可用
// GET /v1/accounts/nickname-availability?nickname=
func (h *AccountHandler) NicknameAvailability(ctx context.Context, c *app.RequestContext) {
	nickname := strings.TrimSpace(c.Query("nickname"))
	if nickname == "" {
		response.ValidationError(ctx, c, errors.InvalidRequest, map[string]string{"nickname": "required"})
		return
	}

	ok, err := h.accounts.NicknameAvailable(ctx, nickname)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, dto.AvailabilityResponse{Available: ok})
}

// CreateAccount 创建账户
// POST /v1/accounts
func (h *AccountHandler) CreateAccount(ctx context.Context, c *app.RequestContext) {
	var req dto.CreateAccountRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	account, err := h.accounts.Create(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, dto.CreateAccountResponse{
		OK: true,
		Item: &dto.AccountItem{
			ID:       strconv.FormatInt(account.PublicID, 10),
			Email:    account.Email,
			Nickname: account.Nickname,
		},
	})
}

// FileHandler 头像上传与开发环境下的文件读取
type FileHandler struct {
	uploader wizard.Uploader
	memory   *objectstore.MemoryStorage
	maxBytes int64
}

// NewFileHandler memory 为 nil 时不提供 /files 读取
func NewFileHandler(uploader wizard.Uploader, memory *objectstore.MemoryStorage, maxBytes int64) *FileHandler {
	return &FileHandler{uploader: uploader, memory: memory, maxBytes: maxBytes}
}

// Upload 上传单个文件，字段名 file
// POST /v1/files
func (h *FileHandler) Upload(ctx context.Context, c *app.RequestContext) {
	file, err := readUpload(c, "file", h.maxBytes)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	result, err := h.uploader.Upload(ctx, file)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items := make([]dto.UploadedFile, 0, len(result.Item))
	for _, it := range result.Item {
		items = append(items, dto.UploadedFile{Path: it.Path})
	}
	response.Success(ctx, c, dto.UploadResponse{OK: result.OK, Item: items})
}

// Serve 读取内存存储中的文件
// GET /files/*key
func (h *FileHandler) Serve(ctx context.Context, c *app.RequestContext) {
	if h.memory == nil {
		response.Error(ctx, c, errors.NotFound)
		return
	}

	data, contentType, ok := h.memory.Get(strings.TrimPrefix(c.Param("key"), "/"))
	if !ok {
		response.Error(ctx, c, errors.NotFound)
		return
	}
	c.Data(consts.StatusOK, contentType, data)
}
