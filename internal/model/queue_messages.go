package model

// AccountCreatedMessage 账户创建事件，worker 发送欢迎通知
type AccountCreatedMessage struct {
	MessageID  string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	AccountID  string `json:"account_id"` // public_id
	Email      string `json:"email"`
	Nickname   string `json:"nickname"`
	WithImage  bool   `json:"with_image"`
	OccurredAt string `json:"occurred_at"`
}

