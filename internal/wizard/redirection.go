package wizard

// RedirectPhase 重定向状态机：Idle -> Redirecting -> Idle
type RedirectPhase string

const (
	RedirectIdle        RedirectPhase = "idle"
	RedirectRedirecting RedirectPhase = "redirecting"
)

type RedirectState struct {
	Phase  RedirectPhase `json:"phase"`
	Target string        `json:"target,omitempty"`
}

func (r RedirectState) Redirecting() bool {
	return r.Phase == RedirectRedirecting
}

// redirection 带 epoch 的状态机，旧的定时器不能结束新的跳转
type redirection struct {
	state RedirectState
	epoch uint64
}

func newRedirection() redirection {
	return redirection{state: RedirectState{Phase: RedirectIdle}}
}

func (r *redirection) begin(target string) uint64 {
	r.epoch++
	r.state = RedirectState{Phase: RedirectRedirecting, Target: target}
	return r.epoch
}

func (r *redirection) settle(epoch uint64) bool {
	if r.state.Phase != RedirectRedirecting || epoch != r.epoch {
		return false
	}
	r.state = RedirectState{Phase: RedirectIdle}
	return true
}
