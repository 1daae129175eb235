// Command assistant runs the destination assistant as a terminal conversation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"destination_assistant/internal/config"
	"destination_assistant/internal/conversation"
	"destination_assistant/internal/core"
	"destination_assistant/internal/extractor"
	"destination_assistant/internal/handoff"
	"destination_assistant/internal/llm"
	"destination_assistant/internal/logger"
	"destination_assistant/internal/voice"
	"destination_assistant/pkg"
)

const (
	goodbye   = "Goodbye! Have a great day."
	confirmed = "Destination confirmed! Handing off to booking system."
)

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	useVoice := flag.Bool("voice", false, "listen on the microphone instead of reading stdin")
	speakReplies := flag.Bool("speak", false, "speak replies aloud")
	historyPath := flag.String("history", "", "load conversation history from this file at start and save it on exit")
	language := flag.String("language", "", "speech locale such as fr-FR (overrides voice.language)")
	flag.Parse()

	if err := run(*configPath, *useVoice, *speakReplies, *historyPath, *language); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, useVoice, speakReplies bool, historyPath, language string) error {
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if useVoice || speakReplies {
		cfg.Voice.Enabled = true
		if cfg.Voice.APIKey == "" {
			cfg.Voice.APIKey = cfg.LLM.APIKey
		}
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("No .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	assistant := core.New(client, extractor.New(cfg.Extractor), cfg.LLM.HistoryWindow)

	publisher, err := handoff.New(ctx, cfg.Handoff)
	if err != nil {
		return fmt.Errorf("error creating handoff publisher: %w", err)
	}
	defer publisher.Close()

	session := pkg.NewSession(uuid.NewString())
	if historyPath != "" {
		history, err := conversation.LoadHistory(historyPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", historyPath).Msg("Could not load conversation history")
		} else {
			session.History = history
			logger.Info().Int("messages", len(history)).Str("path", historyPath).Msg("Loaded conversation history")
		}
	}

	sh := &shell{out: os.Stdout}
	if cfg.Voice.Enabled {
		v := voice.New(cfg.Voice)
		if language != "" {
			v.SetLanguage(language)
		}
		if useVoice {
			sh.listener = v
		}
		if speakReplies {
			sh.speaker = v
		}
	}
	sh.in = bufio.NewScanner(os.Stdin)

	sh.say(ctx, core.Greeting)
	converse(ctx, sh, assistant, publisher, session)
	sh.finish()

	if historyPath != "" {
		if err := conversation.SaveHistory(historyPath, session.History); err != nil {
			logger.Error().Err(err).Str("path", historyPath).Msg("Could not save conversation history")
		}
	}
	return nil
}

func converse(ctx context.Context, sh *shell, assistant *core.Assistant, publisher handoff.Publisher, session *pkg.Session) {
	for ctx.Err() == nil {
		input, ok := sh.read(ctx)
		if !ok {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if isExitWord(input) {
			sh.say(ctx, goodbye)
			return
		}

		result := assistant.ProcessInput(ctx, session, input)
		switch result.Status {
		case pkg.StatusReady:
			sh.say(ctx, confirmed)
			fmt.Fprintln(sh.out, result.JSONObject)
			if err := publisher.Publish(ctx, session.ID, *result.HandoffData); err != nil {
				logger.Error().Err(err).Msg("Failed to publish handoff")
			}
			return
		case pkg.StatusError:
			sh.say(ctx, "Sorry, there was an error: "+result.Error)
		default:
			sh.say(ctx, result.Response)
		}
	}
}

// isExitWord matches typed and transcribed exit words; transcription adds
// capitals and punctuation ("Bye.").
func isExitWord(input string) bool {
	return exitWords[strings.Trim(strings.ToLower(input), " .,!?;:\"'")]
}

type listener interface {
	Listen(ctx context.Context) string
}

type speaker interface {
	Speak(ctx context.Context, text string) *voice.Playback
}

// shell is the terminal side of the conversation: stdin or microphone in,
// stdout and optionally speech out.
type shell struct {
	in       *bufio.Scanner
	out      io.Writer
	listener listener
	speaker  speaker
	playing  *voice.Playback
}

func (s *shell) read(ctx context.Context) (string, bool) {
	if s.listener != nil {
		// Let the previous reply finish so the microphone does not pick it up.
		s.finish()
		fmt.Fprintln(s.out, "Listening...")
		text := s.listener.Listen(ctx)
		if voice.IsApology(text) {
			fmt.Fprintln(s.out, text)
			return "", ctx.Err() == nil
		}
		fmt.Fprintf(s.out, "You said: %s\n", text)
		return text, true
	}

	fmt.Fprint(s.out, "You: ")
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *shell) say(ctx context.Context, text string) {
	fmt.Fprintf(s.out, "Assistant: %s\n", text)
	if s.speaker == nil {
		return
	}
	if s.playing != nil {
		s.playing.Stop()
	}
	s.playing = s.speaker.Speak(ctx, text)
}

func (s *shell) finish() {
	if s.playing != nil {
		_ = s.playing.Wait()
		s.playing = nil
	}
}
