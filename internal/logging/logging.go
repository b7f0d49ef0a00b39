/*
 * ppc32 - Structured logging.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package logging wraps log/slog with a handler that timestamps, levels,
// and mirrors records to stderr. The level filter applies to both
// outputs: a record below the minimum level reaches neither.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that writes a compact text line to out and,
// when verbose (or the record is above debug level), mirrors it to stderr.
type Handler struct {
	out     io.Writer
	h       slog.Handler
	mu      *sync.Mutex
	verbose bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, verbose: h.verbose}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("2006/01/02 15:04:05"), r.Level.String() + ":", r.Message}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})
	line := strings.Join(parts, " ") + "\n"
	b := []byte(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.verbose || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// SetVerbose toggles whether every record (not just info and above) is also
// written to stderr. Used by the debugger's "set verbose" command.
func (h *Handler) SetVerbose(v bool) {
	h.verbose = v
}

// New builds a slog.Logger backed by Handler, writing to file (may be nil
// to disable file output) with the given minimum level.
func New(file io.Writer, level slog.Level, verbose bool) *slog.Logger {
	h := &Handler{
		out:     file,
		h:       slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}),
		mu:      &sync.Mutex{},
		verbose: verbose,
	}
	return slog.New(h)
}
