package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rook-computer/msgboard/internal/logging"
)

// Runner executes a helper script and returns its output.
type Runner interface {
	Run(ctx context.Context, cmd string, args ...string) (stdout, stderr string, err error)
}

type NoopRunner struct{}

func (NoopRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	return "", "", nil
}

// ShellRunner executes commands via sudo and uses PATH to resolve scripts.
// It returns stdout, stderr, and an error if the command exits non-zero.
type ShellRunner struct {
	Logger logging.Logger
	// Sudo can be disabled for development machines.
	NoSudo bool
}

func (s ShellRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	name, fullArgs := "sudo", append([]string{cmd}, args...)
	if s.NoSudo {
		name, fullArgs = cmd, args
	}
	c := exec.CommandContext(ctx, name, fullArgs...)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf

	logging.OrNoop(s.Logger).Debugf("system", "run %s %s", cmd, redactArgs(cmd, args))
	err := c.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), fmt.Errorf("exit %d: %w", exitErr.ExitCode(), err)
		}
		return outBuf.String(), errBuf.String(), err
	}
	return outBuf.String(), errBuf.String(), nil
}

// redactArgs hides the wifi password from debug logs.
func redactArgs(cmd string, args []string) string {
	if cmd != wifiScript || len(args) < 3 {
		return strings.Join(args, " ")
	}
	shown := append([]string{}, args[:2]...)
	shown = append(shown, "****")
	shown = append(shown, args[3:]...)
	return strings.Join(shown, " ")
}
