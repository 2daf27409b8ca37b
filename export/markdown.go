package export

import (
	"strings"
)

// Markdown renders the document as markdown, with sections separated by
// horizontal rules.
func Markdown(doc Document) string {
	parts := make([]string, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		var sb strings.Builder
		sb.WriteString("## " + s.Title + "\n\n")
		for _, b := range s.Blocks {
			writeBlock(&sb, b)
		}
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}
	head := "# " + doc.Title + "\n\n_" + generatedLine(doc.Generated) + "_"
	if len(parts) == 0 {
		return head + "\n"
	}
	return head + "\n\n" + strings.Join(parts, "\n\n---\n\n") + "\n"
}

func writeBlock(sb *strings.Builder, b Block) {
	switch b.Kind {
	case BlockHeading:
		sb.WriteString("### " + b.Text + "\n\n")
	case BlockField:
		sb.WriteString("**" + b.Label + ":** " + b.Text + "\n\n")
	case BlockBullets:
		for _, item := range b.Items {
			sb.WriteString("- " + item + "\n")
		}
		sb.WriteString("\n")
	case BlockTable:
		writeTable(sb, b.Rows)
	default:
		sb.WriteString(b.Text + "\n\n")
	}
}

func writeTable(sb *strings.Builder, rows []Row) {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r.Cells))
	}
	for i, r := range rows {
		cells := make([]string, cols)
		for j := range cells {
			if j < len(r.Cells) {
				cells[j] = cellText(r.Cells[j])
			}
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if i == 0 {
			sb.WriteString("|" + strings.Repeat(" --- |", cols) + "\n")
		}
	}
	sb.WriteString("\n")
}

func cellText(c Cell) string {
	lines := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Bullet {
			lines = append(lines, "• "+l.Text)
			continue
		}
		lines = append(lines, l.Text)
	}
	return strings.Join(lines, "<br>")
}
