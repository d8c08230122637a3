package dto

import "GreenNest/internal/wizard"

// ========== 注册向导 DTO ==========

// StepPageData 向导页面模型
type StepPageData struct {
	Step      int          `json:"step"`
	StepName  string       `json:"step_name"`
	Unlocked  []int        `json:"unlocked_steps"`
	State     wizard.State `json:"state"`
	CSRFToken string       `json:"csrf_token,omitempty"`
}

// NavigationData 接口调用后前端应执行的跳转，Mode 为空表示停留
type NavigationData struct {
	Mode     string `json:"mode,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// StepActionData 前进、后退等动作的结果
type StepActionData struct {
	NavigationData
	CurrentStep int `json:"current_step"`
}

// CheckAvailabilityRequest 邮箱或昵称可用性检查请求，二选一
type CheckAvailabilityRequest struct {
	Email    string `json:"email,omitempty" form:"email"`
	Nickname string `json:"nickname,omitempty" form:"nickname"`
}

// AvailabilityData 检查结束后的状态，Available 为 nil 表示未检查或格式不合法
type AvailabilityData struct {
	Field     string `json:"field"`
	Value     string `json:"value"`
	Available *bool  `json:"available"`
	Checking  bool   `json:"checking"`
	Notice    string `json:"notice,omitempty"`
}

// SubmitData 提交结果
type SubmitData struct {
	States    []string `json:"states"`
	AccountID string   `json:"account_id,omitempty"`
	Message   string   `json:"message,omitempty"`
}
