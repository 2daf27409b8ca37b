package export

import (
	"regexp"
	"strings"
)

var (
	reRule      = regexp.MustCompile(`^[-—]+$`)
	reSepCell   = regexp.MustCompile(`^:?[-—]+:?$`)
	reBullet    = regexp.MustCompile(`^[•\-*]\s+`)
	reHeading3  = regexp.MustCompile(`^###\s*`)
	reField     = regexp.MustCompile(`(?i)^(Goals|Non-goals|Objective|KR\d+):`)
	reBreakTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
	reListTag   = regexp.MustCompile(`(?i)</?[uo]l>`)
	reItemTag   = regexp.MustCompile(`(?i)<li>`)
	reItemEnd   = regexp.MustCompile(`(?i)</li>`)
	reInlineTag = regexp.MustCompile(`(?i)</?(strong|b|em|i)>`)
	reBold      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reBullets   = regexp.MustCompile(`•\s*•`)
	reCellBul   = regexp.MustCompile(`^\s*•\s*`)
)

// ParseContent guesses the structure of a section body line by line. It never
// fails; text it cannot classify becomes a paragraph.
func ParseContent(content string) []Block {
	var (
		blocks []Block
		table  [][]string
		items  []string
	)

	closeTable := func() {
		if len(table) == 0 {
			return
		}
		if b, ok := buildTable(table); ok {
			blocks = append(blocks, b)
		}
		table = nil
	}
	closeList := func() {
		if len(items) == 0 {
			return
		}
		blocks = append(blocks, Block{Kind: BlockBullets, Items: items})
		items = nil
	}

	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if reRule.MatchString(line) {
			continue
		}

		if isTableRow(line) {
			closeList()
			table = append(table, splitRow(line))
			continue
		}
		if table != nil {
			closeTable()
			if line != "" {
				i--
			}
			continue
		}

		if reBullet.MatchString(line) {
			items = append(items, strings.TrimSpace(reBullet.ReplaceAllString(line, "")))
			continue
		}
		if items != nil && line != "" {
			closeList()
			i--
			continue
		}

		switch {
		case line == "":
		case strings.HasPrefix(line, "###"):
			blocks = append(blocks, Block{Kind: BlockHeading, Text: reHeading3.ReplaceAllString(line, "")})
		case reField.MatchString(line):
			label, rest, _ := strings.Cut(line, ":")
			blocks = append(blocks, Block{Kind: BlockField, Label: label, Text: strings.TrimSpace(rest)})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	closeList()
	closeTable()
	return blocks
}

func isTableRow(line string) bool {
	return strings.Count(line, "|") >= 2
}

// splitRow returns the non-empty trimmed cells of a pipe row.
func splitRow(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if !reSepCell.MatchString(strings.ReplaceAll(c, " ", "")) {
			return false
		}
	}
	return true
}

// buildTable drops separator rows and treats the first remaining row as the
// header. The second result is false when nothing is left.
func buildTable(raw [][]string) (Block, bool) {
	var rows []Row
	for _, cells := range raw {
		if isSeparator(cells) {
			continue
		}
		row := Row{Header: len(rows) == 0, Cells: make([]Cell, 0, len(cells))}
		for _, c := range cells {
			row.Cells = append(row.Cells, buildCell(c, row.Header))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return Block{}, false
	}
	return Block{Kind: BlockTable, Rows: rows}, true
}

func buildCell(text string, header bool) Cell {
	var cell Cell
	for _, l := range strings.Split(CleanCell(text), "\n") {
		if l = strings.TrimSpace(l); l == "" {
			continue
		}
		if strings.HasPrefix(l, "•") {
			cell.Lines = append(cell.Lines, CellLine{Text: reCellBul.ReplaceAllString(l, ""), Bullet: true})
			continue
		}
		cell.Lines = append(cell.Lines, CellLine{Text: l, Bold: header})
	}
	return cell
}

// CleanCell strips the HTML and markdown emphasis LLMs put into table cells.
// Break tags and literal "\n" sequences become line breaks, list items become
// "• " lines and every line is trimmed.
func CleanCell(text string) string {
	text = reBreakTag.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, `\n`, "\n")
	text = reListTag.ReplaceAllString(text, "")
	text = reItemTag.ReplaceAllString(text, "• ")
	text = reItemEnd.ReplaceAllString(text, "")
	text = reInlineTag.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reBullets.ReplaceAllString(text, "•")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
