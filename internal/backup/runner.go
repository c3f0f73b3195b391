package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on I/O after the process is killed.
const waitDelay = 5 * time.Second

// ToolSpec describes one external tool invocation.
type ToolSpec struct {
	Name    string
	Args    []string
	Env     []string      // Appended to the current environment
	Timeout time.Duration // Zero means no timeout
}

// ToolRunner runs a tool and returns its stdout.
type ToolRunner func(ctx context.Context, spec ToolSpec) ([]byte, error)

// RunTool executes spec once, capturing stdout and stderr. A non-zero exit
// returns a *ToolError carrying stderr; a timeout kills the process and the
// error wraps context.DeadlineExceeded.
func RunTool(ctx context.Context, spec ToolSpec) ([]byte, error) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, &ToolError{
			Tool:   spec.Name,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}
