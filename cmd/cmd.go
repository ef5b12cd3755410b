package cmd

import (
	"os/exec"
	"strings"

	"r2tabs/log"
)

// Executor runs external commands. It exists so callers can be tested
// without the real binaries installed.
type Executor interface {
	Run(cmd *exec.Cmd) error
	Output(cmd *exec.Cmd) ([]byte, error)
}

type Exec struct{}

func (e Exec) Run(cmd *exec.Cmd) error {
	log.Debug("running: %s", ToString(cmd))
	return cmd.Run()
}

func (e Exec) Output(cmd *exec.Cmd) ([]byte, error) {
	log.Debug("running: %s", ToString(cmd))
	return cmd.Output()
}

func MakeExecutor() Executor {
	return Exec{}
}

// ToString renders a command the way it would be typed in a shell.
func ToString(cmd *exec.Cmd) string {
	if cmd == nil {
		return "<nil>"
	}
	return strings.Join(cmd.Args, " ")
}
