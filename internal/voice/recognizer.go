package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"destination_assistant/internal/logger"
)

// wavHeaderSize is the length of a canonical PCM WAV header; a capture no
// longer than this holds no samples.
const wavHeaderSize = 44

// Recorder captures up to d of audio from the local microphone as WAV bytes.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]byte, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error)
}

// CommandRecorder records with an external program writing 16 kHz mono
// S16_LE WAV to stdout, arecord by default. A capture whose frames never rise
// above EnergyThreshold (DefaultEnergyThreshold when zero) is reported as no speech.
type CommandRecorder struct {
	Command         []string
	EnergyThreshold float64
}

func (r CommandRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	if len(r.Command) == 0 {
		return nil, &RecognitionError{Kind: KindNoMicrophone, Err: errors.New("no recorder command configured")}
	}

	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	args := append(append([]string{}, r.Command[1:]...), "-d", strconv.Itoa(secs), "-")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Command[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, &RecognitionError{Kind: KindNoMicrophone, Err: err}
		}
		if ctx.Err() != nil {
			return nil, &RecognitionError{Kind: KindNoSpeech, Err: ctx.Err()}
		}
		msg := strings.ToLower(stderr.String())
		if strings.Contains(msg, "no such") || strings.Contains(msg, "audio open error") {
			return nil, &RecognitionError{Kind: KindNoMicrophone, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))}
		}
		return nil, &RecognitionError{Kind: KindUnknown, Err: err}
	}

	if stdout.Len() <= wavHeaderSize {
		return nil, &RecognitionError{Kind: KindNoSpeech}
	}
	if !hasSpeech(stdout.Bytes(), r.EnergyThreshold) {
		return nil, &RecognitionError{Kind: KindNoSpeech, Err: errors.New("capture stayed below the speech energy threshold")}
	}
	return stdout.Bytes(), nil
}

// WhisperTranscriber calls an OpenAI-compatible transcription endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, baseURL, model string) *WhisperTranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: openai.NewClientWithConfig(cfg), model: model}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename, language string) (string, error) {
	tr, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		Reader:   audio,
		FilePath: filename,
		Language: language,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 400 {
			return "", &RecognitionError{Kind: KindUnintelligible, Err: err}
		}
		return "", &RecognitionError{Kind: KindServiceUnavailable, Err: err}
	}
	return tr.Text, nil
}

// Recognizer records a bounded utterance and transcribes it.
type Recognizer struct {
	recorder    Recorder
	transcriber Transcriber
	timeout     time.Duration
	log         zerolog.Logger

	mu       sync.RWMutex
	language string
}

func NewRecognizer(rec Recorder, tr Transcriber, timeout time.Duration, language string) *Recognizer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recognizer{
		recorder:    rec,
		transcriber: tr,
		timeout:     timeout,
		language:    language,
		log:         logger.With("voice"),
	}
}

// SetLanguage selects the recognition locale, e.g. "en-US".
func (r *Recognizer) SetLanguage(locale string) {
	r.mu.Lock()
	r.language = locale
	r.mu.Unlock()
}

func (r *Recognizer) Language() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.language
}

// Capture records from the microphone and transcribes. Failures are *RecognitionError.
func (r *Recognizer) Capture(ctx context.Context) (string, error) {
	r.log.Debug().Dur("timeout", r.timeout).Msg("Listening")

	audio, err := r.recorder.Record(ctx, r.timeout)
	if err != nil {
		return "", recognitionErr(KindUnknown, err)
	}
	return r.Transcribe(ctx, bytes.NewReader(audio), "speech.wav")
}

// Transcribe converts already recorded audio, such as a browser upload.
func (r *Recognizer) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	text, err := r.transcriber.Transcribe(ctx, audio, filename, isoLanguage(r.Language()))
	if err != nil {
		return "", recognitionErr(KindServiceUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &RecognitionError{Kind: KindUnintelligible}
	}
	r.log.Debug().Str("text", text).Msg("Recognized speech")
	return text, nil
}

// Listen is Capture that never fails: errors come back as an apology string.
func (r *Recognizer) Listen(ctx context.Context) string {
	text, err := r.Capture(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Speech recognition failed")
		return Message(err)
	}
	return text
}

// isoLanguage reduces a locale such as "en-US" to its ISO-639-1 code.
func isoLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	lang, _, _ = strings.Cut(lang, "_")
	return strings.ToLower(strings.TrimSpace(lang))
}
