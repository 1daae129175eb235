package voice

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"destination_assistant/internal/logger"
)

// Synthesizer speaks text and blocks until playback ends or ctx is cancelled.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, rate int) error
}

// CommandSynthesizer runs a TTS program such as espeak-ng. Cancelling ctx
// kills the process, which stops the audio.
type CommandSynthesizer struct {
	Command []string
}

func (c CommandSynthesizer) Synthesize(ctx context.Context, text, voice string, rate int) error {
	if len(c.Command) == 0 {
		return errors.New("no synthesizer command configured")
	}
	args := append([]string{}, c.Command[1:]...)
	if voice != "" {
		args = append(args, "-v", voice)
	}
	if rate > 0 {
		args = append(args, "-s", strconv.Itoa(rate))
	}
	args = append(args, "--", text)

	return exec.CommandContext(ctx, c.Command[0], args...).Run()
}

// Playback is one utterance playing in the background. done is closed by the
// playback goroutine only, after err is set.
type Playback struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Stop cancels playback. It is safe to call more than once.
func (p *Playback) Stop() { p.cancel() }

// Done is closed when playback has finished or been stopped.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Wait blocks until playback ends. A stopped playback reports no error.
func (p *Playback) Wait() error {
	<-p.done
	return p.err
}

func (p *Playback) Speaking() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Speaker starts playback without blocking the caller.
type Speaker struct {
	synth Synthesizer
	rate  int
	log   zerolog.Logger

	mu      sync.Mutex
	voice   string
	current *Playback
}

func NewSpeaker(synth Synthesizer, rate int, locale string) *Speaker {
	return &Speaker{
		synth: synth,
		rate:  rate,
		voice: VoiceFor(locale),
		log:   logger.With("voice"),
	}
}

// Speak starts playing text on its own goroutine and returns immediately.
func (s *Speaker) Speak(ctx context.Context, text string) *Playback {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &Playback{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	voice := s.voice
	s.current = p
	s.mu.Unlock()

	go func() {
		defer close(p.done)
		defer cancel()
		err := s.synth.Synthesize(ctx, text, voice, s.rate)
		if err != nil && ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("Speech playback failed")
			p.err = err
		}
	}()
	return p
}

// Stop cancels the most recent playback, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Speaking reports whether the most recent playback is still running.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	return p != nil && p.Speaking()
}

// SetLanguage selects the synthesis voice for locale.
func (s *Speaker) SetLanguage(locale string) {
	s.mu.Lock()
	s.voice = VoiceFor(locale)
	s.mu.Unlock()
}

// VoiceFor maps a locale such as "en-US" to an espeak-ng voice name ("en-us").
func VoiceFor(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}
