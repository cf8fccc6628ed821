package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/codefionn/kael/internal/assistant"
	"github.com/codefionn/kael/internal/logger"
	"golang.org/x/term"
)

// replyPrinter writes replies, rendering markdown when out is a terminal.
type replyPrinter struct {
	out      io.Writer
	errOut   io.Writer
	renderer *glamour.TermRenderer
}

func newReplyPrinter(out, errOut *os.File) *replyPrinter {
	p := &replyPrinter{out: out, errOut: errOut}
	if !term.IsTerminal(int(out.Fd())) {
		return p
	}

	width := 100
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 20 {
		width = w - 2
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logger.Warn("markdown rendering disabled: %v", err)
		return p
	}
	p.renderer = renderer
	return p
}

func (p *replyPrinter) print(r assistant.Reply) {
	switch r.Kind {
	case assistant.ReplyCommand:
		return
	case assistant.ReplyError:
		fmt.Fprintln(p.errOut, r.Text)
		if r.Detail != "" {
			fmt.Fprintf(p.errOut, "\nAttempts:\n%s\n", r.Detail)
		}
		return
	}

	if r.Status != "" {
		fmt.Fprintf(p.errOut, "[%s]\n", r.Status)
	}
	fmt.Fprintf(p.errOut, "[%s]\n", r.Provider.Label())

	text := r.Text
	if p.renderer != nil {
		if rendered, err := p.renderer.Render(text); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, text)
}
