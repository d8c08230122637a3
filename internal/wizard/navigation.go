package wizard

import "fmt"

// NavMode 导航方式，由 handler 渲染为重定向或 JSON
type NavMode string

const (
	NavNone    NavMode = ""
	NavPush    NavMode = "push"
	NavReplace NavMode = "replace"
	NavBack    NavMode = "back"
)

type Navigation struct {
	Mode NavMode `json:"mode,omitempty"`
	Path string  `json:"path,omitempty"`
}

func (n Navigation) None() bool {
	return n.Mode == NavNone
}

func Push(path string) Navigation {
	return Navigation{Mode: NavPush, Path: path}
}

func Replace(path string) Navigation {
	return Navigation{Mode: NavReplace, Path: path}
}

func Back() Navigation {
	return Navigation{Mode: NavBack}
}

// StepPath 步骤路由
func StepPath(step int) string {
	return fmt.Sprintf("/signup/step-%d", step)
}
