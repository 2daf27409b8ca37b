package main

import (
	"fmt"
	"io"
	"strings"

	"agenthub/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const barWidth = 30

// progressBar draws p in [0,1] as a fixed width bar. Values outside the range
// are clamped.
func progressBar(p float64) string {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	filled := int(p * barWidth)
	return barStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled)) +
		fmt.Sprintf(" %3.0f%%", p*100)
}

type renderer struct {
	out io.Writer
	md  *glamour.TermRenderer
}

func newRenderer(out io.Writer) *renderer {
	md, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	return &renderer{out: out, md: md}
}

func (r *renderer) markdown(text string) {
	if r.md != nil {
		if s, err := r.md.Render(text); err == nil {
			fmt.Fprint(r.out, s)
			return
		}
	}
	fmt.Fprintln(r.out, text)
}

func (r *renderer) title(s string) {
	fmt.Fprintln(r.out, titleStyle.Render(s))
}

func (r *renderer) note(format string, args ...any) {
	fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf(format, args...)))
}

func (r *renderer) fail(err error) {
	fmt.Fprintln(r.out, errStyle.Render("error: "+err.Error()))
}

func (r *renderer) section(i int, s types.Section) {
	r.title(fmt.Sprintf("[%d] %s", i+1, s.Title))
	r.markdown(s.Content)
}
