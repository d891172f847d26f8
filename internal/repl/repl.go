// Package repl runs the interactive question loop of the chat command.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/usecase/chat"
)

// historyPreview is how many characters of a message the history command prints.
const historyPreview = 100

// Asker answers one question within a conversation.
type Asker interface {
	Ask(ctx context.Context, conv *domain.Conversation, question string) (chat.Answer, error)
}

// Setting is one line printed by the settings command.
type Setting struct {
	Name  string
	Value string
}

// Session is an interactive chat over a reader and a writer.
type Session struct {
	asker    Asker
	conv     *domain.Conversation
	in       io.Reader
	out      io.Writer
	settings []Setting
	prompt   bool
	logger   *zap.Logger
}

// New creates a session. The prompt is printed only when in is a terminal.
func New(asker Asker, conv *domain.Conversation, in io.Reader, out io.Writer, settings []Setting, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		asker:    asker,
		conv:     conv,
		in:       in,
		out:      out,
		settings: settings,
		prompt:   IsTerminal(in),
		logger:   logger,
	}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run reads questions until quit, end of input or ctx cancellation.
// A failed question is reported and the loop goes on. Cancellation, for
// instance Ctrl-C while waiting at the prompt, ends the session cleanly.
func (s *Session) Run(ctx context.Context) error {
	s.printf("Documentation assistant. Type 'help' for commands, 'quit' to leave.\n\n")

	done := make(chan struct{})
	defer close(done)
	lines, readErr := s.readLines(done)

	for {
		if ctx.Err() != nil {
			s.printf("\nGoodbye.\n")
			return nil
		}
		if s.prompt {
			s.printf("You: ")
		}

		var text string
		select {
		case <-ctx.Done():
			s.printf("\nGoodbye.\n")
			return nil
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				s.printf("\n")
				return nil
			}
			text = l
		}

		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			s.printf("Goodbye.\n")
			return nil
		case "help":
			s.printHelp()
		case "history":
			s.printHistory()
		case "reset":
			s.conv.Reset()
			s.printf("Conversation cleared.\n\n")
		case "settings":
			s.printSettings()
		default:
			s.ask(ctx, line)
		}
	}
}

// readLines scans input in the background so a blocked read never holds up
// cancellation. The error channel is written once, before lines is closed.
func (s *Session) readLines(done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errc <- scanner.Err()
	}()

	return lines, errc
}

// ask prints the answer or the error. Errors caused by cancellation are left
// to the loop.
func (s *Session) ask(ctx context.Context, question string) {
	ans, err := s.asker.Ask(ctx, s.conv, question)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Question failed", zap.Error(err))
		s.printf("Error: %v\n\n", describe(err))
		return
	}

	s.printf("\nAssistant: %s\n", ans.Content)
	if len(ans.Citations) > 0 {
		s.printf("\nSources:\n")
		for i, c := range ans.Citations {
			s.printf("  %d. %s", i+1, c.Title)
			if c.URL != "" {
				s.printf(" (%s)", c.URL)
			}
			s.printf("\n")
		}
	}
	s.printf("\n")
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		return "the search index does not exist yet, run 'docqa index create' and 'docqa ingest' first"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "the model quota is exhausted, try again later"
	default:
		return err.Error()
	}
}

func (s *Session) printHelp() {
	s.printf(`Commands:
  help      show this help
  history   show the conversation so far
  reset     clear the conversation
  settings  show the current configuration
  quit      leave (also: exit, q)

Anything else is sent as a question.

`)
}

func (s *Session) printHistory() {
	history := s.conv.History()
	if len(history) == 0 {
		s.printf("No messages yet.\n\n")
		return
	}
	for i, m := range history {
		s.printf("%d. %s: %s\n", i+1, m.Role, preview(m.Content, historyPreview))
	}
	s.printf("\n")
}

func (s *Session) printSettings() {
	width := 0
	for _, st := range s.settings {
		width = max(width, len(st.Name))
	}
	for _, st := range s.settings {
		s.printf("  %-*s  %s\n", width, st.Name, st.Value)
	}
	s.printf("\n")
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
