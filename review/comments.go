// Package review turns a streamed free-text review into per-section comments
// anchored to lines of the reviewed document.
package review

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

const (
	sectionMarker = "**Section:"
	General       = "General"
)

type Comment struct {
	Section   string `json:"section"`
	Comment   string `json:"comment"`
	LineRef   string `json:"line_ref"`
	LineIndex int    `json:"line_index"`
}

// ParseComments splits reviewText on the "**Section:" marker. Text before the
// first marker is dropped and blocks with an empty body are skipped. Each title is
// matched against the lines of original, first match wins. It never fails.
func ParseComments(reviewText, original string) []Comment {
	return parse(reviewText, foldLines(original, cases.Fold()), cases.Fold())
}

// Parser memoizes the folded lines of one original document and the comments
// of the last review text, so that re-parsing after every streamed delta only
// rescans the review. It is not safe for concurrent use.
type Parser struct {
	fold     cases.Caser
	lines    []string
	lastText string
	last     []Comment
}

func NewParser(original string) *Parser {
	p := &Parser{fold: cases.Fold()}
	p.lines = foldLines(original, p.fold)
	return p
}

func (p *Parser) Parse(reviewText string) []Comment {
	if p.last != nil && reviewText == p.lastText {
		return p.last
	}
	p.last = parse(reviewText, p.lines, p.fold)
	p.lastText = reviewText
	return p.last
}

func foldLines(original string, fold cases.Caser) []string {
	lines := strings.Split(original, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(fold.String(l))
	}
	return lines
}

func parse(reviewText string, lines []string, fold cases.Caser) []Comment {
	blocks := strings.Split(reviewText, sectionMarker)
	comments := make([]Comment, 0, len(blocks))
	for _, block := range blocks[1:] {
		title, body, _ := strings.Cut(block, "\n")
		title = strings.TrimSpace(strings.ReplaceAll(title, "**", ""))
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		c := Comment{Section: title, Comment: body, LineRef: General, LineIndex: -1}
		if title == "" {
			c.Section = General
		} else if i := matchLine(fold.String(title), lines); i >= 0 {
			c.LineRef = "Line " + strconv.Itoa(i+1)
			c.LineIndex = i
		}
		comments = append(comments, c)
	}
	return comments
}

// matchLine finds the first line that contains the title or is contained in it.
// Blank lines never match.
func matchLine(title string, lines []string) int {
	for i, line := range lines {
		if line == "" {
			continue
		}
		if strings.Contains(line, title) || strings.Contains(title, line) {
			return i
		}
	}
	return -1
}
