package handler

import (
	"context"
	stderrors "errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"GreenNest/internal/middleware"
	"GreenNest/internal/model/dto"
	"GreenNest/internal/service"
	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/response"
)

// SignupHandler 注册向导接口，向导 id 来自会话
type SignupHandler struct {
	wizards  *service.WizardService
	maxBytes int64
}

func NewSignupHandler(wizards *service.WizardService, maxUploadBytes int64) *SignupHandler {
	return &SignupHandler{wizards: wizards, maxBytes: maxUploadBytes}
}

func wizardID(ctx context.Context, c *app.RequestContext) (string, bool) {
	id, ok := middleware.GetWizardID(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized.WithMessage("Sign-up session not found"))
		return "", false
	}
	return id, true
}

func navigationData(nav wizard.Navigation) dto.NavigationData {
	return dto.NavigationData{Mode: string(nav.Mode), Redirect: nav.Path}
}

func stepParam(ctx context.Context, c *app.RequestContext) (int, bool) {
	step, err := service.ParseStep(c.Param("step"))
	if err != nil {
		response.Error(ctx, c, err)
		return 0, false
	}
	return step, true
}

// Start 入口跳到第一步，守卫会再把用户带到允许的步骤
// GET /signup
func (h *SignupHandler) Start(ctx context.Context, c *app.RequestContext) {
	c.Redirect(consts.StatusFound, []byte(wizard.StepPath(wizard.FirstStep)))
}

// GetStep 步骤页面模型，未解锁时重定向
// GET /signup/step-:step
func (h *SignupHandler) GetStep(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}
	step, ok := stepParam(ctx, c)
	if !ok {
		return
	}

	nav, page, err := h.wizards.Page(ctx, id, step)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	if !nav.None() {
		c.Redirect(consts.StatusFound, []byte(nav.Path))
		return
	}

	page.CSRFToken = middleware.CSRFToken(c)
	response.Success(ctx, c, page)
}

// PatchStep 合并字段修改，不改变校验状态
// PATCH /signup/step-:step
func (h *SignupHandler) PatchStep(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}
	step, ok := stepParam(ctx, c)
	if !ok {
		return
	}

	var patch any
	switch step {
	case wizard.StepTerms:
		var p wizard.Step1Patch
		if err := c.BindJSON(&p); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		patch = p
	case wizard.StepAccount:
		var p wizard.Step2Patch
		if err := c.BindJSON(&p); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		patch = p
	default:
		var p wizard.Step3Patch
		if err := c.BindJSON(&p); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		patch = p
	}

	state, err := h.wizards.Patch(ctx, id, patch)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, state)
}

// NextStep 校验当前步骤并前进
// POST /signup/step-:step/next
func (h *SignupHandler) NextStep(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}
	step, ok := stepParam(ctx, c)
	if !ok {
		return
	}

	var data any
	switch step {
	case wizard.StepTerms:
		var d wizard.Step1Data
		if err := c.BindJSON(&d); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		data = d
	case wizard.StepAccount:
		var d wizard.Step2Data
		if err := c.BindJSON(&d); err != nil {
			response.BindError(ctx, c, err)
			return
		}
		data = d
	default:
		var d wizard.Step3Data
		if len(c.Request.Body()) > 0 {
			if err := c.BindJSON(&d); err != nil {
				response.BindError(ctx, c, err)
				return
			}
		}
		data = d
	}

	outcome, state, err := h.wizards.Advance(ctx, id, step, data)
	h.writeOutcome(ctx, c, outcome, state, err)
}

// Back 后退一步
// POST /signup/back
func (h *SignupHandler) Back(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}

	outcome, state, err := h.wizards.Retreat(ctx, id)
	h.writeOutcome(ctx, c, outcome, state, err)
}

func (h *SignupHandler) writeOutcome(ctx context.Context, c *app.RequestContext, outcome wizard.Outcome, state wizard.State, err error) {
	switch {
	case err == nil:
		response.Success(ctx, c, dto.StepActionData{
			NavigationData: navigationData(outcome.Navigation),
			CurrentStep:    state.CurrentStep,
		})
	case stderrors.Is(err, errors.SignupValidationFailed):
		response.ValidationError(ctx, c, err, outcome.FieldErrors)
	case !outcome.Navigation.None():
		response.ErrorWithDetails(ctx, c, err, map[string]interface{}{"redirect": outcome.Navigation.Path})
	default:
		response.Error(ctx, c, err)
	}
}

// CheckEmail 邮箱可用性
// POST /signup/check-email
func (h *SignupHandler) CheckEmail(ctx context.Context, c *app.RequestContext) {
	h.checkAvailability(ctx, c, wizard.FieldEmail)
}

// CheckNickname 昵称可用性
// POST /signup/check-nickname
func (h *SignupHandler) CheckNickname(ctx context.Context, c *app.RequestContext) {
	h.checkAvailability(ctx, c, wizard.FieldNickname)
}

func (h *SignupHandler) checkAvailability(ctx context.Context, c *app.RequestContext, field wizard.Field) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}

	var req dto.CheckAvailabilityRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}
	value := req.Email
	if field == wizard.FieldNickname {
		value = req.Nickname
	}

	data, err := h.wizards.CheckAvailability(ctx, id, field, value)
	if err != nil {
		if stderrors.Is(err, errors.SignupValidationFailed) {
			response.ValidationError(ctx, c, err, h.wizards.FieldErrors(ctx, id))
			return
		}
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, data)
}

// Complete 提交注册，multipart 字段 image、gender、birthDate
// POST /signup/complete
func (h *SignupHandler) Complete(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}

	step3 := wizard.Step3Data{
		Gender:    c.PostForm("gender"),
		BirthDate: c.PostForm("birthDate"),
	}
	image, err := readUpload(c, "image", h.maxBytes)
	switch {
	case err == nil:
		step3.Image = &image
	case stderrors.Is(err, errors.UploadMissingFile):
	default:
		response.Error(ctx, c, err)
		return
	}

	result, state, err := h.wizards.Submit(ctx, id, step3)
	if err != nil {
		if stderrors.Is(err, errors.SignupInputInvalid) {
			response.ValidationError(ctx, c, err, state.FieldErrors)
			return
		}
		response.Error(ctx, c, err)
		return
	}

	data := dto.SubmitData{Message: wizard.CompletionMessage}
	for _, s := range result.States {
		data.States = append(data.States, string(s))
	}
	if result.Account != nil {
		data.AccountID = result.Account.ID
	}
	response.Success(ctx, c, data)
}

// Finalize 用户确认成功弹窗，清空向导并跳转到登录页
// POST /signup/finalize
func (h *SignupHandler) Finalize(ctx context.Context, c *app.RequestContext) {
	id, ok := wizardID(ctx, c)
	if !ok {
		return
	}

	nav, err := h.wizards.Finalize(ctx, id)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, navigationData(nav))
}
