package voice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type fakeProcess struct {
	stdout  io.Reader
	stderr  io.Reader
	waitErr error

	kill     func()
	killOnce sync.Once
}

func (p *fakeProcess) Stdin() io.WriteCloser { return nopWriteCloser{io.Discard} }
func (p *fakeProcess) Stdout() io.Reader     { return p.stdout }
func (p *fakeProcess) Stderr() io.Reader     { return p.stderr }
func (p *fakeProcess) Wait() error           { return p.waitErr }

func (p *fakeProcess) Kill() error {
	p.killOnce.Do(func() {
		if p.kill != nil {
			p.kill()
		}
	})

	return nil
}

// finishedProcess plays the given output and exits with err.
func finishedProcess(output []byte, stderr string, err error) *fakeProcess {
	return &fakeProcess{
		stdout:  bytes.NewReader(output),
		stderr:  strings.NewReader(stderr),
		waitErr: err,
	}
}

// idleProcess produces nothing until killed.
func idleProcess() *fakeProcess {
	reader, writer := io.Pipe()

	return &fakeProcess{
		stdout:  reader,
		stderr:  strings.NewReader(""),
		waitErr: errors.New("signal: killed"),
		kill:    func() { _ = writer.Close() },
	}
}

type fakeStarter struct {
	available map[string]bool
	next      func(n int) Process

	starts *atomic.Int32
}

func newFakeStarter(next func(n int) Process) *fakeStarter {
	return &fakeStarter{
		available: map[string]bool{"ffmpeg": true},
		next:      next,
		starts:    atomic.NewInt32(0),
	}
}

func (s *fakeStarter) LookPath(name string) (string, error) {
	if s.available[name] {
		return "/usr/bin/" + name, nil
	}

	return "", errors.New("not found")
}

func (s *fakeStarter) Start(_ context.Context, _ string, _ []string) (Process, error) {
	return s.next(int(s.starts.Inc())), nil
}

type fakeSender struct {
	mu     sync.Mutex
	frames [][]byte
	sentAt []time.Time
	spoke  []bool
}

func (f *fakeSender) sendFrame(opus []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frames = append(f.frames, opus)
	f.sentAt = append(f.sentAt, time.Now())
}

func (f *fakeSender) speaking(speaking bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.spoke = append(f.spoke, speaking)

	return nil
}

func (f *fakeSender) snapshot() ([][]byte, []time.Time, []bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([][]byte(nil), f.frames...), append([]time.Time(nil), f.sentAt...), append([]bool(nil), f.spoke...)
}

type eventLog struct {
	events chan Event
}

func newEventLog() *eventLog {
	return &eventLog{events: make(chan Event, 64)}
}

func (l *eventLog) handle(event Event) {
	l.events <- event
}

func (l *eventLog) next(t *testing.T, typ EventType) Event {
	t.Helper()

	timeout := time.After(2 * time.Second)

	for {
		select {
		case event := <-l.events:
			if event.Type() == typ {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for event %d", typ)

			return nil
		}
	}
}

func newTestAudio(t *testing.T, starter *fakeStarter, sender frameSender, log *eventLog, policy RestartPolicy) *AudioContext {
	t.Helper()

	audio, err := newAudioContext(context.Background(), zerolog.Nop(), sender, log.handle, AudioConfig{
		Starter: starter,
		Restart: policy,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = audio.Close() })

	return audio
}

func TestChooseEncoder(t *testing.T) {
	t.Parallel()

	starter := newFakeStarter(nil)
	starter.available = map[string]bool{"avconv": true}

	path, err := ChooseEncoder(starter, DefaultEncoders)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/avconv", path)

	starter.available = map[string]bool{}

	_, err = ChooseEncoder(starter, DefaultEncoders)
	assert.ErrorIs(t, err, ErrNoEncoder)

	_, err = newAudioContext(context.Background(), zerolog.Nop(), &fakeSender{}, func(Event) {}, AudioConfig{Starter: starter})
	assert.ErrorIs(t, err, ErrNoEncoder)
}

func TestEncoderArgs(t *testing.T) {
	t.Parallel()

	args := strings.Join(EncoderArgs(2), " ")

	assert.Equal(t, "-hide_banner -loglevel error -i pipe:0 -map 0:a -acodec libopus -f data -sample_fmt s16 "+
		"-vbr off -compression_level 10 -ar 48000 -ac 2 -b:a 128000 pipe:1", args)
	assert.Contains(t, strings.Join(EncoderArgs(1), " "), "-ac 1")
}

func TestRestartPolicyDelay(t *testing.T) {
	t.Parallel()

	policy := RestartPolicy{MaxRetries: 5, Backoff: time.Second, MaxBackoff: 5 * time.Second}

	assert.Equal(t, time.Second, policy.delay(1))
	assert.Equal(t, 2*time.Second, policy.delay(2))
	assert.Equal(t, 4*time.Second, policy.delay(3))
	assert.Equal(t, 5*time.Second, policy.delay(4))
	assert.Equal(t, 5*time.Second, policy.delay(10))
}

func TestAudioPacesFrames(t *testing.T) {
	t.Parallel()

	output := make([]byte, FrameSize*4+100)
	for i := range output {
		output[i] = byte(i / FrameSize)
	}

	starter := newFakeStarter(func(n int) Process {
		if n == 1 {
			return finishedProcess(output, "", nil)
		}

		return idleProcess()
	})

	sender := &fakeSender{}
	log := newEventLog()
	audio := newTestAudio(t, starter, sender, log, DefaultRestartPolicy())

	_, err := audio.Write([]byte("input"))
	require.NoError(t, err)

	log.next(t, EventTypeDone)

	frames, sentAt, speaking := sender.snapshot()

	require.Len(t, frames, 5)
	assert.Len(t, frames[0], FrameSize)
	assert.Equal(t, byte(3), frames[3][0])
	assert.Len(t, frames[4], 100)

	assert.Equal(t, []bool{true, false}, speaking)

	assert.GreaterOrEqual(t, sentAt[4].Sub(sentAt[0]), 4*FrameDuration-5*time.Millisecond)

	assert.Eventually(t, func() bool { return starter.starts.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestAudioGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	starter := newFakeStarter(func(int) Process {
		return finishedProcess(nil, "", errors.New("exit status 1"))
	})

	log := newEventLog()
	audio := newTestAudio(t, starter, &fakeSender{}, log, RestartPolicy{MaxRetries: 2, Backoff: time.Millisecond})

	_, err := audio.Write([]byte("input"))
	require.NoError(t, err)

	event := log.next(t, EventTypeError)
	assert.ErrorContains(t, event.(ErrorEvent).Err, "exit status 1")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(3), starter.starts.Load())

	_, err = audio.Write([]byte("again"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), starter.starts.Load())
}

func TestAudioReportsEncoderOutput(t *testing.T) {
	t.Parallel()

	starter := newFakeStarter(func(n int) Process {
		if n == 1 {
			return finishedProcess(nil, "pipe:0: Invalid data found when processing input\n", nil)
		}

		return idleProcess()
	})

	log := newEventLog()
	audio := newTestAudio(t, starter, &fakeSender{}, log, DefaultRestartPolicy())

	_, err := audio.Write([]byte("garbage"))
	require.NoError(t, err)

	event := log.next(t, EventTypeError)
	assert.ErrorContains(t, event.(ErrorEvent).Err, "Invalid data")

	log.next(t, EventTypeDone)
}

func TestAudioStopDoesNotRespawn(t *testing.T) {
	t.Parallel()

	starter := newFakeStarter(func(int) Process { return idleProcess() })

	log := newEventLog()
	audio := newTestAudio(t, starter, &fakeSender{}, log, DefaultRestartPolicy())

	_, err := audio.Write([]byte("input"))
	require.NoError(t, err)

	audio.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), starter.starts.Load())

	_, err = audio.Write([]byte("input"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), starter.starts.Load())

	require.NoError(t, audio.Close())

	_, err = audio.Write([]byte("input"))
	assert.ErrorIs(t, err, ErrAudioClosed)
}
