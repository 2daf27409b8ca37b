package section

import (
	"regexp"
	"strings"
)

var (
	reBreak      = regexp.MustCompile(`(?i)<br\s*/?>`)
	reListOpen   = regexp.MustCompile(`(?i)</?[uo]l>`)
	reItemOpen   = regexp.MustCompile(`(?i)<li>`)
	reItemClose  = regexp.MustCompile(`(?i)</li>`)
	reStarBullet = regexp.MustCompile(`^\*\s+`)
	reCellBullet = regexp.MustCompile(`^\s*[-•]\s+`)
	reAnyTag     = regexp.MustCompile(`<[^>]*>`)
	reSeparator  = regexp.MustCompile(`^[-\s:]+$`)
	reHeading    = regexp.MustCompile(`(?m)^(#{1,3}\s+.+)$`)
	reBlankRun   = regexp.MustCompile(`\n{3,}`)
	quoteFolder  = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// NormalizeMarkdown cleans up LLM produced section text: tables are re-emitted
// with a single header separator, HTML list and break tags become plain
// markdown, "* " bullets become "• ", blank runs collapse and headings get a
// blank line around them. Applying it twice gives the same result as once.
func NormalizeMarkdown(content string) string {
	var (
		out     []string
		pending [][]string
		inTable bool
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, tableRow(pending[0]), separatorRow(len(pending[0])))
		for _, row := range pending[1:] {
			out = append(out, tableRow(row))
		}
		pending = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "|") && trimmed != "|" {
			cells := splitCells(trimmed)
			if isSeparatorRow(cells) {
				if len(pending) == 1 {
					flush()
					inTable = true
				}
				continue
			}
			for i, c := range cells {
				cells[i] = cleanTableCell(c)
			}
			if inTable {
				out = append(out, tableRow(cells))
			} else {
				pending = append(pending, cells)
			}
			continue
		}

		flush()
		inTable = false
		out = append(out, cleanLine(line))
	}
	flush()

	text := strings.Join(out, "\n")
	text = reHeading.ReplaceAllString(text, "\n$1\n")
	text = reBlankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// splitCells splits a pipe row and drops the empty edge cells left by leading
// and trailing pipes.
func splitCells(row string) []string {
	parts := strings.Split(row, "|")
	cells := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" && (i == 0 || i == len(parts)-1) {
			continue
		}
		cells = append(cells, p)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if !reSeparator.MatchString(c) {
			return false
		}
	}
	return true
}

// cleanTableCell keeps <br> tags in place: a real line break would split the row.
func cleanTableCell(cell string) string {
	cell = reBreak.ReplaceAllString(cell, "<br>")
	cell = reCellBullet.ReplaceAllString(cell, "• ")
	return quoteFolder.Replace(cell)
}

func cleanLine(line string) string {
	line = reBreak.ReplaceAllString(line, "  \n")
	line = reListOpen.ReplaceAllString(line, "")
	line = reItemOpen.ReplaceAllString(line, "• ")
	line = reItemClose.ReplaceAllString(line, "")
	line = reStarBullet.ReplaceAllString(line, "• ")
	return reAnyTag.ReplaceAllString(line, "")
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func separatorRow(n int) string {
	return "|" + strings.Repeat(" --- |", n)
}
