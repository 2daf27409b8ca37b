// Package export turns the finished sections of a document into a structured
// document and serializes it as WordprocessingML or markdown.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"agenthub/types"
)

const DefaultTitle = "Product Requirements Document"

type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockField     BlockKind = "field"
	BlockBullets   BlockKind = "bullets"
	BlockTable     BlockKind = "table"
)

// Block is one structural element of a section body. Which fields are set
// depends on Kind: Text for paragraphs and headings, Label and Text for
// labeled fields, Items for bullet lists and Rows for tables.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Label string    `json:"label,omitempty"`
	Items []string  `json:"items,omitempty"`
	Rows  []Row     `json:"rows,omitempty"`
}

type Row struct {
	Header bool   `json:"header"`
	Cells  []Cell `json:"cells"`
}

// Cell holds the cleaned text of a table cell split into lines.
type Cell struct {
	Lines []CellLine `json:"lines"`
}

type CellLine struct {
	Text   string `json:"text"`
	Bullet bool   `json:"bullet,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
}

type Section struct {
	Title  string  `json:"title"`
	Order  int     `json:"order"`
	Blocks []Block `json:"blocks"`
}

type Document struct {
	Title     string    `json:"title"`
	Generated time.Time `json:"generated"`
	Sections  []Section `json:"sections"`
}

// Transform assembles the document in ascending section order. An empty title
// falls back to DefaultTitle.
func Transform(title string, sections []types.Section, now time.Time) Document {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	sorted := make([]types.Section, len(sections))
	copy(sorted, sections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	doc := Document{Title: title, Generated: now, Sections: make([]Section, 0, len(sorted))}
	for _, s := range sorted {
		doc.Sections = append(doc.Sections, Section{
			Title:  s.Title,
			Order:  s.Order,
			Blocks: ParseContent(s.Content),
		})
	}
	return doc
}

// FileName is the download name of an exported document.
func FileName(now time.Time) string {
	return fmt.Sprintf("PRD_%s.docx", now.UTC().Format("2006-01-02"))
}

func generatedLine(t time.Time) string {
	return "Generated on " + t.Format("January 2, 2006")
}
