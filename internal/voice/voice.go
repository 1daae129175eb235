// Package voice provides speech input (record then transcribe) and
// non-blocking speech output for the assistant surfaces.
package voice

import (
	"context"
	"io"

	"destination_assistant/internal/config"
)

// Adapter pairs a Recognizer with a Speaker so both follow one language setting.
type Adapter struct {
	recognizer *Recognizer
	speaker    *Speaker
}

func NewAdapter(rec *Recognizer, sp *Speaker) *Adapter {
	return &Adapter{recognizer: rec, speaker: sp}
}

// New wires the command-line recorder and synthesizer with the Whisper transcriber.
func New(cfg config.VoiceConfig) *Adapter {
	rec := NewRecognizer(
		CommandRecorder{Command: cfg.RecorderCommand, EnergyThreshold: cfg.EnergyThreshold},
		NewWhisperTranscriber(cfg.APIKey, cfg.TranscriptionBaseURL, cfg.TranscriptionModel),
		cfg.ListenTimeout,
		cfg.Language,
	)
	sp := NewSpeaker(CommandSynthesizer{Command: cfg.SynthesizerCommand}, cfg.SpeechRate, cfg.Language)
	return NewAdapter(rec, sp)
}

func (a *Adapter) Listen(ctx context.Context) string { return a.recognizer.Listen(ctx) }

func (a *Adapter) Capture(ctx context.Context) (string, error) { return a.recognizer.Capture(ctx) }

func (a *Adapter) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	return a.recognizer.Transcribe(ctx, audio, filename)
}

func (a *Adapter) Speak(ctx context.Context, text string) *Playback { return a.speaker.Speak(ctx, text) }

func (a *Adapter) Stop() { a.speaker.Stop() }

func (a *Adapter) Speaking() bool { return a.speaker.Speaking() }

// SetLanguage sets the recognition locale and the matching synthesis voice.
func (a *Adapter) SetLanguage(locale string) {
	a.recognizer.SetLanguage(locale)
	a.speaker.SetLanguage(locale)
}
