package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultPrompt is printed before every search term.
	DefaultPrompt = "Enter a search term :"
	// DefaultSentinel ends the loop.
	DefaultSentinel = "exit"
)

// ErrorPolicy decides what happens when a handler fails.
type ErrorPolicy int

const (
	// PropagateErrors stops the loop and returns the handler error.
	PropagateErrors ErrorPolicy = iota
	// DiscardErrors logs the handler error and prompts again.
	DiscardErrors
)

func (p ErrorPolicy) String() string {
	switch p {
	case PropagateErrors:
		return "propagate"
	case DiscardErrors:
		return "discard"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// Options configures a Loop.
type Options struct {
	// Prompt is printed before each read. Default: DefaultPrompt.
	Prompt string
	// Sentinel ends the loop when read alone on a line. It is never
	// forwarded. Default: DefaultSentinel.
	Sentinel string
	// Errors selects the handler error policy. Default: PropagateErrors.
	Errors ErrorPolicy
	// Logger receives discarded errors. Default: zap.NewNop().
	Logger *zap.Logger
}

// Handler processes one input line. A non-nil result is printed on its
// own line.
type Handler func(ctx context.Context, line string) (any, error)

// Loop reads lines from an input and writes prompts and results to an
// output. A Loop is not safe for concurrent use.
type Loop struct {
	in   *bufio.Reader
	out  io.Writer
	opts Options
}

// New returns a loop reading from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) *Loop {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loop{in: bufio.NewReader(in), out: out, opts: opts}
}

// Ask prints prompt on its own line and reads the answer without its line
// terminator. It returns io.EOF once the input is exhausted; a final line
// without terminator is still returned.
func (l *Loop) Ask(prompt string) (string, error) {
	if _, err := fmt.Fprintln(l.out, prompt); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	line, err := l.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// IsSentinel reports whether line ends the loop.
func (l *Loop) IsSentinel(line string) bool {
	return line == l.opts.Sentinel
}

// Run prompts for lines and forwards each to handler until the sentinel
// or the end of input. It returns how many lines were forwarded.
func (l *Loop) Run(ctx context.Context, handler Handler) (int, error) {
	forwarded := 0
	for {
		if err := ctx.Err(); err != nil {
			return forwarded, err
		}

		line, err := l.Ask(l.opts.Prompt)
		if errors.Is(err, io.EOF) {
			return forwarded, nil
		}
		if err != nil {
			return forwarded, err
		}
		if l.IsSentinel(line) {
			return forwarded, nil
		}

		forwarded++
		if err := l.Handle(ctx, line, handler); err != nil {
			return forwarded, err
		}
	}
}

// Handle forwards one line to handler, printing its result and applying
// the error policy.
func (l *Loop) Handle(ctx context.Context, line string, handler Handler) error {
	result, err := handler(ctx, line)
	if err != nil {
		if l.opts.Errors == DiscardErrors {
			l.opts.Logger.Debug("Discarded handler error", zap.String("input", line), zap.Error(err))
			return nil
		}
		return fmt.Errorf("%w: %q: %w", ErrHandler, line, err)
	}
	if result == nil {
		return nil
	}
	if _, err := fmt.Fprintln(l.out, result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
