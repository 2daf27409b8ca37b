package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	styleBullet = "List Bullet"
	styleTable  = "LightList-Accent1"
)

// WriteDOCX writes doc as a .docx package: a title page, a page break, then a
// level 2 heading and the body blocks of every section.
func WriteDOCX(w io.Writer, doc Document) error {
	d, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}
	if err := buildDocx(d, doc); err != nil {
		return err
	}

	// godocx saves to a path, so the package goes through a temp dir.
	dir, err := os.MkdirTemp("", "agenthub-docx-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "out.docx")
	if err := d.SaveTo(path); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func buildDocx(d *docx.RootDoc, doc Document) error {
	if _, err := d.AddHeading(doc.Title, 0); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	d.AddParagraph(generatedLine(doc.Generated))
	d.AddPageBreak()

	for _, s := range doc.Sections {
		if _, err := d.AddHeading(s.Title, 2); err != nil {
			return fmt.Errorf("section %q: %w", s.Title, err)
		}
		for _, b := range s.Blocks {
			if err := docxBlock(d, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func docxBlock(d *docx.RootDoc, b Block) error {
	switch b.Kind {
	case BlockHeading:
		if _, err := d.AddHeading(b.Text, 3); err != nil {
			return fmt.Errorf("heading %q: %w", b.Text, err)
		}
	case BlockField:
		p := d.AddParagraph("")
		p.AddText(b.Label + ":").Bold(true)
		p.AddText(" " + b.Text)
	case BlockBullets:
		for _, item := range b.Items {
			d.AddParagraph(item).Style(styleBullet)
		}
	case BlockTable:
		docxTable(d, b.Rows)
	default:
		d.AddParagraph(b.Text)
	}
	return nil
}

func docxTable(d *docx.RootDoc, rows []Row) {
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r.Cells))
	}

	tbl := d.AddTable()
	tbl.Style(styleTable)
	for _, r := range rows {
		row := tbl.AddRow()
		for i := 0; i < cols; i++ {
			var c Cell
			if i < len(r.Cells) {
				c = r.Cells[i]
			}
			docxCell(row.AddCell(), c, r.Header)
		}
	}
}

// docxCell writes at least one paragraph, since Word rejects empty cells.
func docxCell(tc *docx.Cell, c Cell, header bool) {
	if len(c.Lines) == 0 {
		tc.AddParagraph(" ")
		return
	}
	for _, l := range c.Lines {
		p := tc.AddParagraph("")
		if l.Bullet {
			p.Style(styleBullet)
		}
		p.AddText(l.Text).Bold(header || l.Bold)
	}
}
