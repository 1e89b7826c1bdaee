package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// frameSender is the part of a session the pacer writes to.
type frameSender interface {
	sendFrame(opus []byte)
	speaking(speaking bool) error
}

// AudioConfig configures the send path of a session.
type AudioConfig struct {
	Encoders []string      `json:"encoders" yaml:"encoders"`
	Stereo   bool          `json:"stereo" yaml:"stereo"`
	Restart  RestartPolicy `json:"restart" yaml:"restart"`

	Starter ProcessStarter `json:"-" yaml:"-"`
}

func (c AudioConfig) channels() int {
	if c.Stereo {
		return 2
	}

	return 1
}

// AudioContext feeds arbitrary audio through an encoder and sends the
// resulting opus frames every 20ms.
type AudioContext struct {
	Logger zerolog.Logger

	sender  frameSender
	emit    func(Event)
	starter ProcessStarter
	path    string
	args    []string
	policy  RestartPolicy

	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	proc       Process
	procCancel context.CancelFunc
	generation uint64
	retries    int
	closed     bool
}

func newAudioContext(ctx context.Context, logger zerolog.Logger, sender frameSender, emit func(Event), config AudioConfig) (*AudioContext, error) {
	starter := config.Starter
	if starter == nil {
		starter = ExecStarter{}
	}

	encoders := config.Encoders
	if len(encoders) == 0 {
		encoders = DefaultEncoders
	}

	path, err := ChooseEncoder(starter, encoders)
	if err != nil {
		return nil, err
	}

	policy := config.Restart
	if policy == (RestartPolicy{}) {
		policy = DefaultRestartPolicy()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &AudioContext{
		Logger:   logger.With().Str("encoder", path).Logger(),
		sender:   sender,
		emit:     emit,
		starter:  starter,
		path:     path,
		args:     EncoderArgs(config.channels()),
		policy:   policy,
		interval: FrameDuration,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Write sends audio to the encoder, starting one if none is running.
func (a *AudioContext) Write(p []byte) (int, error) {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()

		return 0, ErrAudioClosed
	}

	if a.proc == nil {
		err := a.spawnLocked()
		if err != nil {
			a.mu.Unlock()

			return 0, err
		}
	}

	stdin := a.proc.Stdin()
	a.mu.Unlock()

	return stdin.Write(p)
}

// End closes the encoder input. Buffered audio is still played, then a
// DoneEvent is emitted.
func (a *AudioContext) End() error {
	a.mu.Lock()
	proc := a.proc
	a.mu.Unlock()

	if proc == nil {
		return nil
	}

	return proc.Stdin().Close()
}

// Stop kills the encoder immediately. A new one is started on the next Write.
func (a *AudioContext) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

// Close stops the encoder and prevents any further Write.
func (a *AudioContext) Close() error {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()

		return nil
	}

	a.closed = true
	a.stopLocked()
	a.mu.Unlock()

	a.cancel()

	return nil
}

func (a *AudioContext) stopLocked() {
	a.generation++
	a.retries = 0

	if a.proc == nil {
		return
	}

	proc, cancel := a.proc, a.procCancel
	a.proc, a.procCancel = nil, nil

	_ = proc.Stdin().Close()
	_ = proc.Kill()

	cancel()
}

func (a *AudioContext) spawnLocked() error {
	ctx, cancel := context.WithCancel(a.ctx)

	proc, err := a.starter.Start(ctx, a.path, a.args)
	if err != nil {
		cancel()

		return fmt.Errorf("failed to start encoder: %w", err)
	}

	EncoderMetrics.Spawned.Inc()

	a.generation++
	a.proc = proc
	a.procCancel = cancel

	go a.supervise(ctx, a.generation, proc)

	return nil
}

// supervise plays the output of an encoder and decides what to do once it
// exits.
func (a *AudioContext) supervise(ctx context.Context, generation uint64, proc Process) {
	stderrDone := make(chan struct{})

	go func() {
		defer close(stderrDone)

		a.watchStderr(proc.Stderr())
	}()

	a.play(ctx, proc.Stdout())

	<-stderrDone

	err := proc.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.generation != generation {
		return
	}

	a.proc = nil
	if a.procCancel != nil {
		a.procCancel()
		a.procCancel = nil
	}

	if err == nil {
		a.retries = 0

		a.Logger.Debug().Msg("Encoder finished")

		a.emitUnlocked(DoneEvent{})

		if a.closed || a.generation != generation || a.proc != nil {
			return
		}

		if spawnErr := a.spawnLocked(); spawnErr != nil {
			a.emitUnlocked(ErrorEvent{Err: spawnErr})
		}

		return
	}

	EncoderMetrics.Failures.Inc()

	a.retries++

	if a.retries > a.policy.MaxRetries {
		a.Logger.Error().Err(err).Int("retries", a.retries-1).Msg("Encoder failed, giving up")

		a.retries = 0
		a.emitUnlocked(ErrorEvent{Err: fmt.Errorf("encoder exited: %w", err)})

		return
	}

	wait := a.policy.delay(a.retries)

	a.Logger.Warn().Err(err).Int("retry", a.retries).Dur("backoff", wait).Msg("Encoder exited, restarting")

	go a.restartAfter(generation, wait)
}

func (a *AudioContext) restartAfter(generation uint64, wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-a.ctx.Done():
		return
	case <-timer.C:
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.generation != generation || a.proc != nil {
		return
	}

	if err := a.spawnLocked(); err != nil {
		a.emitUnlocked(ErrorEvent{Err: err})
	}
}

// emitUnlocked emits without holding the lock so handlers may call back in.
func (a *AudioContext) emitUnlocked(event Event) {
	a.mu.Unlock()
	defer a.mu.Lock()

	a.emit(event)
}

func (a *AudioContext) watchStderr(stderr io.Reader) {
	if stderr == nil {
		return
	}

	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		a.Logger.Warn().Str("output", line).Msg("Encoder reported an error")

		a.emit(ErrorEvent{Err: errors.New(line)})
	}
}

// play reads fixed size frames and sends frame i at start + i*interval.
func (a *AudioContext) play(ctx context.Context, stdout io.Reader) {
	var (
		start    time.Time
		frames   int64
		speaking bool
	)

	timer := time.NewTimer(0)
	<-timer.C

	defer timer.Stop()

	defer func() {
		if speaking {
			_ = a.sender.speaking(false)
		}
	}()

	for {
		frame := make([]byte, FrameSize)

		n, err := io.ReadFull(stdout, frame)
		if n == 0 {
			return
		}

		if !speaking {
			speaking = true
			start = time.Now()

			_ = a.sender.speaking(true)
		}

		if wait := time.Until(start.Add(time.Duration(frames) * a.interval)); wait > 0 {
			timer.Reset(wait)

			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		a.sender.sendFrame(frame[:n])
		frames++

		if err != nil {
			return
		}
	}
}
