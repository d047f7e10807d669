package sandbox

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// Sandbox drives one Docker Compose project: the attacker/victim topology a
// single epoch runs against. All container orchestration is delegated to the
// `docker compose` CLI, this package only builds invocations and interprets
// their outcome.
type Sandbox struct {
	// Project is the compose project name, derived from the run identity so
	// concurrent epochs never collide.
	Project string

	// Dir is the bundle directory holding the compose definition.
	Dir string
}

func New(project, dir string) *Sandbox {
	return &Sandbox{
		Project: project,
		Dir:     dir,
	}
}

// ExecResult captures one command execution inside a container.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited zero.
func (res ExecResult) Success() bool {
	return res.ExitCode == 0
}

func (sb *Sandbox) composeFile() string {
	return filepath.Join(sb.Dir, challenge.ComposeFile)
}

func (sb *Sandbox) compose(ctx context.Context, args ...string) *exec.Cmd {
	base := []string{"compose", "-p", sb.Project, "-f", sb.composeFile()}
	return exec.CommandContext(ctx, "docker", append(base, args...)...)
}

// Up starts the project detached and waits for every service to be running.
func (sb *Sandbox) Up(ctx context.Context) error {
	ctx, span := global.Tracer.Start(ctx, "sandbox-up")
	defer span.End()

	cmd := sb.compose(ctx, "up", "--detach", "--wait")
	out, err := cmd.CombinedOutput()
	if err != nil {
		global.Log().Error(ctx, "compose up",
			zap.String("project", sb.Project),
			zap.ByteString("output", out),
		)
		return &errs.ErrSandbox{Op: "up", Sub: err}
	}
	return nil
}

// Exec runs a shell command in the given service and captures its outcome.
// A non-zero exit is not an error: it is a legitimate result the agent needs
// to observe. Only a failure to invoke the command at all is an error.
func (sb *Sandbox) Exec(ctx context.Context, service, command string, timeout time.Duration) (ExecResult, error) {
	ctx, span := global.Tracer.Start(ctx, "sandbox-exec")
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := sb.compose(ctx, "exec", "-T", service, "bash", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return res, &errs.ErrSandbox{Op: "exec", Sub: err}
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

// Logs fetches the logs of a service, mostly for failure diagnosis.
func (sb *Sandbox) Logs(ctx context.Context, service string) (string, error) {
	cmd := sb.compose(ctx, "logs", "--no-color", service)
	out, err := cmd.Output()
	if err != nil {
		return "", &errs.ErrSandbox{Op: "logs", Sub: err}
	}
	return string(out), nil
}

// Down tears the project down, volumes included.
// It runs on a non-canceled context: an interrupted run must still reclaim
// its containers, else the janitor inherits them.
func (sb *Sandbox) Down(ctx context.Context) error {
	ctx, span := global.Tracer.Start(context.WithoutCancel(ctx), "sandbox-down")
	defer span.End()

	cmd := sb.compose(ctx, "down", "--volumes", "--remove-orphans")
	out, err := cmd.CombinedOutput()
	if err != nil {
		global.Log().Error(ctx, "compose down",
			zap.String("project", sb.Project),
			zap.ByteString("output", out),
		)
		return &errs.ErrSandbox{Op: "down", Sub: err}
	}
	return nil
}
