// Package console runs the operator's line-oriented command prompt.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/couchcryptid/weather-sampler-service/internal/domain"
	"github.com/couchcryptid/weather-sampler-service/internal/export"
)

// Recognized commands.
const (
	CommandExport = "export_xlsx"
	CommandExit   = "exit"
)

// maxLineBytes bounds a command line; longer input is truncated and reported
// as unrecognized.
const maxLineBytes = 4096

// Prompt is written before every read.
const Prompt = "enter 'export_xlsx' to export data or 'exit' to quit >>> "

// ErrExitRequested is returned by Run when the operator typed exit.
var ErrExitRequested = errors.New("exit requested")

// Exporter writes a snapshot of recent samples.
type Exporter interface {
	Export(ctx context.Context) (export.Result, error)
}

// Console reads commands from in and reports results to out.
type Console struct {
	in       io.Reader
	out      io.Writer
	exporter Exporter
	logger   *slog.Logger
}

// New creates a Console.
func New(in io.Reader, out io.Writer, exporter Exporter, logger *slog.Logger) *Console {
	return &Console{
		in:       in,
		out:      out,
		exporter: exporter,
		logger:   logger,
	}
}

type readResult struct {
	line      string
	truncated bool
	err       error
}

// Run prompts and dispatches commands until exit (ErrExitRequested), end of
// input or a read failure (nil), or ctx cancellation (nil). A blocked read
// does not delay the return on cancellation; the reader goroutine is left
// behind.
func (c *Console) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := c.readLines(done)

	for {
		c.prompt()

		select {
		case <-ctx.Done():
			return nil
		case r := <-lines:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					c.logger.Info("command input closed, acquisition continues")
				} else {
					c.logger.Warn("command input failed, acquisition continues", "error", r.err)
				}
				return nil
			}
			if r.truncated {
				c.unrecognized(fmt.Errorf("%w: line longer than %d bytes", domain.ErrUnrecognizedCommand, maxLineBytes))
				continue
			}
			if err := c.dispatch(ctx, strings.TrimSpace(r.line)); err != nil {
				return err
			}
		}
	}
}

func (c *Console) dispatch(ctx context.Context, cmd string) error {
	switch cmd {
	case "":
		return nil
	case CommandExport:
		c.export(ctx)
		return nil
	case CommandExit:
		c.logger.Info("exit requested by operator")
		fmt.Fprintln(c.out, "shutting down...")
		return ErrExitRequested
	default:
		c.unrecognized(fmt.Errorf("%w %q", domain.ErrUnrecognizedCommand, cmd))
		return nil
	}
}

func (c *Console) unrecognized(err error) {
	c.logger.Debug("ignored operator input", "error", err)
	fmt.Fprintf(c.out, "%v, use '%s' or '%s'\n", err, CommandExport, CommandExit)
}

func (c *Console) export(ctx context.Context) {
	res, err := c.exporter.Export(ctx)
	if err != nil {
		c.logger.Warn("export failed", "error", err)
		if errors.Is(err, domain.ErrExportFailed) {
			fmt.Fprintln(c.out, err)
		} else {
			fmt.Fprintf(c.out, "export failed: %v\n", err)
		}
		return
	}
	fmt.Fprintf(c.out, "exported %d samples to %s\n", res.Count, res.Path)
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, Prompt)
}

// readLines reads c.in on its own goroutine. It stops after the first error
// (io.EOF included) or once done is closed.
func (c *Console) readLines(done <-chan struct{}) <-chan readResult {
	out := make(chan readResult)
	go func() {
		r := bufio.NewReader(c.in)
		for {
			res := readLine(r)
			select {
			case out <- res:
			case <-done:
				return
			}
			if res.err != nil {
				return
			}
		}
	}()
	return out
}

// readLine returns the next line without its terminator. Bytes past
// maxLineBytes are discarded and the result is marked truncated.
func readLine(r *bufio.Reader) readResult {
	var (
		buf       []byte
		truncated bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if len(buf) > 0 || truncated {
				return readResult{line: string(buf), truncated: truncated}
			}
			return readResult{err: err}
		}
		if room := maxLineBytes - len(buf); len(chunk) > room {
			buf = append(buf, chunk[:room]...)
			truncated = true
		} else {
			buf = append(buf, chunk...)
		}
		if !isPrefix {
			return readResult{line: string(buf), truncated: truncated}
		}
	}
}
