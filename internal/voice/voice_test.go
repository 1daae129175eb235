package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	audio []byte
	err   error
}

func (f fakeRecorder) Record(context.Context, time.Duration) ([]byte, error) {
	return f.audio, f.err
}

type fakeTranscriber struct {
	text     string
	err      error
	language string
	body     string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string, language string) (string, error) {
	f.language = language
	b, _ := io.ReadAll(audio)
	f.body = string(b)
	return f.text, f.err
}

func TestListen_Success(t *testing.T) {
	tr := &fakeTranscriber{text: "  somewhere with beaches \n"}
	r := NewRecognizer(fakeRecorder{audio: []byte("RIFF....")}, tr, time.Second, "en-US")

	assert.Equal(t, "somewhere with beaches", r.Listen(context.Background()))
	assert.Equal(t, "en", tr.language)
	assert.Equal(t, "RIFF....", tr.body)
}

func TestListen_FailuresBecomeApologies(t *testing.T) {
	tests := []struct {
		name string
		rec  fakeRecorder
		tr   *fakeTranscriber
		want string
		kind ErrorKind
	}{
		{
			name: "no speech",
			rec:  fakeRecorder{err: &RecognitionError{Kind: KindNoSpeech}},
			tr:   &fakeTranscriber{},
			want: "Sorry, no speech detected. Please try again.",
			kind: KindNoSpeech,
		},
		{
			name: "no microphone",
			rec:  fakeRecorder{err: &RecognitionError{Kind: KindNoMicrophone}},
			tr:   &fakeTranscriber{},
			want: "Sorry, microphone not found. Check your device.",
			kind: KindNoMicrophone,
		},
		{
			name: "unintelligible",
			rec:  fakeRecorder{audio: []byte("wav")},
			tr:   &fakeTranscriber{text: "   "},
			want: "Sorry, I couldn't understand that.",
			kind: KindUnintelligible,
		},
		{
			name: "service unavailable",
			rec:  fakeRecorder{audio: []byte("wav")},
			tr:   &fakeTranscriber{err: errors.New("502 bad gateway")},
			want: "Sorry, speech recognition service is unavailable.",
			kind: KindServiceUnavailable,
		},
		{
			name: "unknown",
			rec:  fakeRecorder{err: errors.New("device busy")},
			tr:   &fakeTranscriber{},
			want: "Sorry, an error occurred: device busy",
			kind: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecognizer(tt.rec, tt.tr, time.Second, "en-US")

			got := r.Listen(context.Background())
			assert.Equal(t, tt.want, got)
			assert.True(t, IsApology(got))

			_, err := r.Capture(context.Background())
			var rerr *RecognitionError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, tt.kind, rerr.Kind)
		})
	}
}

func TestCommandRecorder_MissingBinary(t *testing.T) {
	_, err := CommandRecorder{Command: []string{"/nonexistent/arecord"}}.Record(context.Background(), time.Second)

	var rerr *RecognitionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindNoMicrophone, rerr.Kind)
}

func TestSetLanguage(t *testing.T) {
	tr := &fakeTranscriber{text: "bonjour"}
	rec := NewRecognizer(fakeRecorder{audio: []byte("wav")}, tr, time.Second, "en-US")
	synth := &blockingSynth{}
	a := NewAdapter(rec, NewSpeaker(synth, 150, "en-US"))

	a.SetLanguage("fr_FR")
	a.Listen(context.Background())
	assert.Equal(t, "fr", tr.language)

	p := a.Speak(context.Background(), "bonjour")
	p.Stop()
	require.NoError(t, p.Wait())
	assert.Equal(t, "fr-fr", synth.lastVoice())
}

type blockingSynth struct {
	mu      sync.Mutex
	started chan struct{}
	voice   string
	rate    int
}

func (b *blockingSynth) Synthesize(ctx context.Context, _ string, voice string, rate int) error {
	b.mu.Lock()
	b.voice, b.rate = voice, rate
	started := b.started
	b.mu.Unlock()
	if started != nil {
		close(started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingSynth) lastVoice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice
}

func TestSpeak_ReturnsImmediatelyAndStops(t *testing.T) {
	synth := &blockingSynth{started: make(chan struct{})}
	sp := NewSpeaker(synth, 150, "en-US")

	p := sp.Speak(context.Background(), "Hello there")
	<-synth.started
	assert.True(t, p.Speaking())
	assert.True(t, sp.Speaking())

	sp.Stop()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("playback did not stop")
	}
	assert.False(t, p.Speaking())
	assert.False(t, sp.Speaking())
	assert.NoError(t, p.Wait())

	p.Stop()
	assert.Equal(t, 150, synth.rate)
}

type errSynth struct{ err error }

func (e errSynth) Synthesize(context.Context, string, string, int) error { return e.err }

func TestSpeak_ReportsPlaybackError(t *testing.T) {
	sp := NewSpeaker(errSynth{err: errors.New("no audio device")}, 150, "en-US")
	p := sp.Speak(context.Background(), "hi")
	assert.EqualError(t, p.Wait(), "no audio device")
}

func TestSpeak_OutlivesCallerContext(t *testing.T) {
	synth := &blockingSynth{started: make(chan struct{})}
	sp := NewSpeaker(synth, 150, "en-US")

	ctx, cancel := context.WithCancel(context.Background())
	p := sp.Speak(ctx, "long answer")
	<-synth.started
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, p.Speaking())
	p.Stop()
	<-p.Done()
}

func TestVoiceFor(t *testing.T) {
	assert.Equal(t, "en-us", VoiceFor("en-US"))
	assert.Equal(t, "pt-br", VoiceFor(" pt_BR "))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Sorry, an error occurred: x", Message(errors.New("x")))
	assert.False(t, IsApology("Kyoto please"))
}

// wavCapture builds a streamed-style WAV (placeholder data size) around samples.
func wavCapture(samples []int16) []byte {
	buf := make([]byte, wavHeaderSize+2*len(samples))
	copy(buf[0:4], "RIFF")
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], 0x7fffffff)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+2*i:], uint16(s))
	}
	return buf
}

func tone(n int, amplitude float64) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	return out
}

func TestHasSpeech(t *testing.T) {
	silence := make([]int16, sampleRate)
	hum := tone(sampleRate, 200)
	speech := append(make([]int16, calibrationSpan), tone(sampleRate/2, 8000)...)
	loudRoom := tone(sampleRate, 3000)

	assert.False(t, hasSpeech(wavCapture(silence), 0))
	assert.False(t, hasSpeech(wavCapture(hum), DefaultEnergyThreshold))
	assert.True(t, hasSpeech(wavCapture(speech), DefaultEnergyThreshold))
	assert.False(t, hasSpeech(wavCapture(loudRoom), DefaultEnergyThreshold), "steady ambient noise raises the threshold")
	assert.False(t, hasSpeech(nil, 0))
}

func TestCommandRecorder_SilentCaptureIsNoSpeech(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	// Five seconds of 16 kHz mono zeros behind a 44-byte header.
	rec := CommandRecorder{Command: []string{"sh", "-c", "head -c 160044 /dev/zero", "sh"}}
	tr := &fakeTranscriber{text: "Thank you."}
	r := NewRecognizer(rec, tr, 5*time.Second, "en-US")

	text, err := r.Capture(context.Background())
	assert.Empty(t, text)
	var rerr *RecognitionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, KindNoSpeech, rerr.Kind)
	assert.Empty(t, tr.body, "silence is never sent for transcription")
	assert.Equal(t, "Sorry, no speech detected. Please try again.", r.Listen(context.Background()))
}
