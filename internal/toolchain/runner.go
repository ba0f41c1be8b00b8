package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Command is one subprocess invocation. Arguments are passed as-is, no shell
// is involved. When Pipe is set, stdout is fed into Pipe's stdin.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
	Pipe *Command
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	s := strings.Join(parts, " ")
	if c.Pipe != nil {
		s += " | " + c.Pipe.String()
	}
	return s
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Runner executes commands. Builders depend on this interface so tests can
// record invocations instead of running tools.
type Runner interface {
	// Run executes the command, streaming its output, and returns an
	// *ExitError when it exits non-zero.
	Run(ctx context.Context, cmd Command) error
	// Output executes the command and returns combined stdout and stderr.
	Output(ctx context.Context, cmd Command) (string, error)
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	logrus.Infof("Running: %s", c)

	stdout, stderr := r.writers()
	if c.Pipe != nil {
		return r.runPiped(ctx, c, stdout, stderr)
	}

	cmd := r.command(ctx, c)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return classify(c, cmd.Run())
}

func (r *ExecRunner) runPiped(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	producer := r.command(ctx, c)
	consumer := r.command(ctx, *c.Pipe)

	// An OS pipe makes the producer see EPIPE once the consumer is gone.
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("creating pipe for %s: %w", c.Name, err)
	}
	producer.Stdout = pw
	producer.Stderr = stderr
	consumer.Stdin = pr
	consumer.Stdout = stdout
	consumer.Stderr = stderr

	err = consumer.Start()
	pr.Close()
	if err != nil {
		pw.Close()
		return classify(*c.Pipe, err)
	}
	err = producer.Start()
	pw.Close()
	if err != nil {
		consumer.Wait()
		return classify(c, err)
	}

	consErr := consumer.Wait()
	prodErr := producer.Wait()

	// The producer's status decides the build, like `set -o pipefail`.
	if prodErr != nil {
		return classify(c, prodErr)
	}
	return classify(*c.Pipe, consErr)
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, c Command) (string, error) {
	logrus.Debugf("Running: %s", c)
	var buf bytes.Buffer
	cmd := r.command(ctx, c)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := classify(c, cmd.Run())
	return buf.String(), err
}

// Start launches c in the background with its output discarded. The returned
// stop func kills the process and reaps it; calling it more than once is safe.
func (r *ExecRunner) Start(ctx context.Context, c Command) (stop func(), err error) {
	logrus.Debugf("Starting: %s", c)
	cmd := r.command(ctx, c)
	if err := cmd.Start(); err != nil {
		return nil, classify(c, err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// The process may already be gone.
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		})
	}, nil
}

func (r *ExecRunner) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		env := os.Environ()
		for k, v := range c.Env {
			env = SetEnv(env, k, v)
		}
		cmd.Env = env
	}
	return cmd
}

func (r *ExecRunner) writers() (io.Writer, io.Writer) {
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func classify(c Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: c.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("running %s: %w", c.Name, err)
}
