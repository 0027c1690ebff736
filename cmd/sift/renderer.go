package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// renderer prints conversation progress to the terminal. Streamed AI text
// is written incrementally; a snapshot that rewrites earlier text clears
// what was already printed and reprints.
type renderer struct {
	printed int
	current string
}

func newRenderer(disableColor bool) *renderer {
	if disableColor {
		color.NoColor = true
	}
	return &renderer{}
}

func (r *renderer) banner(url string) {
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("Connected to %s", url))
}

func (r *renderer) user(text string) {
	fmt.Printf("%s %s\n", color.New(color.FgCyan, color.Bold).Sprint("you ›"), text)
}

func (r *renderer) model(ref string) string {
	return color.New(color.FgCyan).Sprint(ref)
}

func (r *renderer) beginAI(modelID string) {
	r.printed = 0
	r.current = ""
	label := "sift ›"
	if modelID != "" {
		label = fmt.Sprintf("sift (%s) ›", modelID)
	}
	fmt.Printf("%s ", color.New(color.FgGreen, color.Bold).Sprint(label))
}

// streamTo prints whatever of text has not been printed yet. When text no
// longer extends what was printed the output restarts on a fresh line.
func (r *renderer) streamTo(text string) {
	if text == r.current {
		return
	}
	if strings.HasPrefix(text, r.current) {
		fmt.Print(text[r.printed:])
		r.printed = len(text)
		r.current = text
		return
	}
	fmt.Println()
	fmt.Print(text)
	r.printed = len(text)
	r.current = text
}

func (r *renderer) endAI(msg types.ChatMessage) {
	r.streamTo(msg.Text)
	fmt.Println()
	if msg.IsError {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("analysis failed"))
	}
	r.printed = 0
	r.current = ""
}

func (r *renderer) status(status types.SessionStatus) {
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("[%s]", status))
}

func (r *renderer) help(text string) {
	fmt.Println(text)
}
