package invoke

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ExecRuntime invokes the model runtime as a blocking subprocess, e.g.
// `ollama run <variant>` with the prompt on stdin and the reply on stdout.
type ExecRuntime struct {
	binary string
	args   []string
	logger zerolog.Logger
}

// NewExecRuntime creates a subprocess runtime. binary defaults to "ollama"
// and args to ["run"]; the variant id is appended per call.
func NewExecRuntime(binary string, args []string, logger zerolog.Logger) *ExecRuntime {
	if binary == "" {
		binary = "ollama"
	}
	if len(args) == 0 {
		args = []string{"run"}
	}
	return &ExecRuntime{binary: binary, args: args, logger: logger}
}

// Name returns the runtime identifier.
func (r *ExecRuntime) Name() string { return "exec" }

// Invoke runs the prompt on the named variant. The context deadline kills
// the subprocess on expiry.
func (r *ExecRuntime) Invoke(ctx context.Context, variantID, prompt string) (*Reply, error) {
	args := append(append([]string(nil), r.args...), variantID)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	wall := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &VariantError{VariantID: variantID, Timeout: true, Err: ctx.Err()}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		r.logger.Debug().Str("variant", variantID).Str("stderr", detail).Msg("runtime subprocess failed")
		return nil, &VariantError{VariantID: variantID, Err: fmt.Errorf("%s: %s", r.binary, detail)}
	}
	return &Reply{Text: stdout.String(), WallTime: wall}, nil
}
