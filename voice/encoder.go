package voice

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

// DefaultEncoders are the encoder binaries tried in order.
var DefaultEncoders = []string{"ffmpeg", "avconv"}

// Process is a running encoder.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() error
	Kill() error
}

// ProcessStarter spawns encoder processes.
type ProcessStarter interface {
	LookPath(name string) (string, error)
	Start(ctx context.Context, path string, args []string) (Process, error)
}

// ExecStarter starts encoders as child processes.
type ExecStarter struct{}

func (ExecStarter) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecStarter) Start(ctx context.Context, path string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder stderr: %w", err)
	}

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() io.Reader     { return p.stderr }
func (p *execProcess) Wait() error           { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}

	return p.cmd.Process.Kill()
}

// ChooseEncoder returns the path of the first available encoder.
func ChooseEncoder(starter ProcessStarter, candidates []string) (string, error) {
	for _, candidate := range candidates {
		if path, err := starter.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", ErrNoEncoder
}

// EncoderArgs returns the arguments turning any input on stdin into raw
// 48kHz opus frames on stdout.
func EncoderArgs(channels int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "data",
		"-sample_fmt", "s16",
		"-vbr", "off",
		"-compression_level", "10",
		"-ar", "48000",
		"-ac", strconv.Itoa(channels),
		"-b:a", "128000",
		"pipe:1",
	}
}

// RestartPolicy controls how an encoder that exited abnormally is
// respawned. A clean end of stream always respawns immediately.
type RestartPolicy struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Backoff    time.Duration `json:"backoff" yaml:"backoff"`
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		MaxRetries: 3,
		Backoff:    time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// delay returns the wait before the given retry, doubling each attempt.
func (p RestartPolicy) delay(retry int) time.Duration {
	wait := p.Backoff

	for i := 1; i < retry; i++ {
		wait *= 2

		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			return p.MaxBackoff
		}
	}

	return wait
}
