package service

// ValidationError 用户输入不满足约束；属于预期结果，不是异常
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// 对外展示的状态文案
const (
	MsgPosted      = "Thanks, your message was posted!"
	MsgUnavailable = "Something went wrong. Please try again later."
)
