package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"agenthub/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generated = time.Date(2025, 3, 7, 22, 30, 0, 0, time.UTC)

func TestTransformOrdersByOrder(t *testing.T) {
	doc := Transform("", []types.Section{
		{ID: "b", Title: "B", Order: 2},
		{ID: "a", Title: "A", Order: 0},
		{ID: "c", Title: "C", Order: 1},
	}, generated)

	assert.Equal(t, DefaultTitle, doc.Title)
	var titles []string
	for _, s := range doc.Sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{"A", "C", "B"}, titles)
}

func TestTransformEmpty(t *testing.T) {
	doc := Transform("Search", nil, generated)
	assert.Empty(t, doc.Sections)
	assert.Empty(t, ParseContent(""))
}

func TestParseTable(t *testing.T) {
	blocks := ParseContent("| H1 | H2 |\n| a | b |\n| --- | --- |")
	require.Len(t, blocks, 1)
	tbl := blocks[0]
	require.Equal(t, BlockTable, tbl.Kind)
	require.Len(t, tbl.Rows, 2)

	header := tbl.Rows[0]
	assert.True(t, header.Header)
	assert.Equal(t, []Cell{
		{Lines: []CellLine{{Text: "H1", Bold: true}}},
		{Lines: []CellLine{{Text: "H2", Bold: true}}},
	}, header.Cells)

	data := tbl.Rows[1]
	assert.False(t, data.Header)
	assert.Equal(t, []Cell{
		{Lines: []CellLine{{Text: "a"}}},
		{Lines: []CellLine{{Text: "b"}}},
	}, data.Cells)
}

func TestParseTableSeparatorWithColons(t *testing.T) {
	blocks := ParseContent("| Metric | Target |\n|:---|: --- :|\n| p95 | 100ms |")
	require.Len(t, blocks, 1)
	assert.Len(t, blocks[0].Rows, 2)
}

func TestParseTableClosingLineIsReprocessed(t *testing.T) {
	blocks := ParseContent("| a | b |\n| 1 | 2 |\n### Next\nafter")
	require.Len(t, blocks, 3)
	assert.Equal(t, BlockTable, blocks[0].Kind)
	assert.Equal(t, Block{Kind: BlockHeading, Text: "Next"}, blocks[1])
	assert.Equal(t, Block{Kind: BlockParagraph, Text: "after"}, blocks[2])
}

func TestParseTableOnlySeparatorsIsDropped(t *testing.T) {
	assert.Empty(t, ParseContent("| --- | --- |\n|---|---|"))
}

func TestParseBulletsCoalesce(t *testing.T) {
	blocks := ParseContent("- one\n* two\n• three\nclosing")
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Kind: BlockBullets, Items: []string{"one", "two", "three"}}, blocks[0])
	assert.Equal(t, Block{Kind: BlockParagraph, Text: "closing"}, blocks[1])
}

func TestParseBulletsAcrossBlankLines(t *testing.T) {
	blocks := ParseContent("- one\n\n- two")
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"one", "two"}, blocks[0].Items)
}

func TestParseListBeforeTableKeepsOrder(t *testing.T) {
	blocks := ParseContent("- item\n| a | b |\n| 1 | 2 |")
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockBullets, blocks[0].Kind)
	assert.Equal(t, BlockTable, blocks[1].Kind)
}

func TestParseHeadingsFieldsAndRules(t *testing.T) {
	blocks := ParseContent("### Scope\n---\n—\nGoals: fast search\nkr1: p95 < 100ms: measured weekly\nNon-Goals: ranking\n  plain text  ")
	assert.Equal(t, []Block{
		{Kind: BlockHeading, Text: "Scope"},
		{Kind: BlockField, Label: "Goals", Text: "fast search"},
		{Kind: BlockField, Label: "kr1", Text: "p95 < 100ms: measured weekly"},
		{Kind: BlockField, Label: "Non-Goals", Text: "ranking"},
		{Kind: BlockParagraph, Text: "plain text"},
	}, blocks)
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a<br>b<br/>c", "a\nb\nc"},
		{`first\nsecond`, "first\nsecond"},
		{"<ul><li>x</li><li>y</li></ul>", "• x• y"},
		{"<strong>bold</strong> and <em>it</em>", "bold and it"},
		{"**Owner**", "Owner"},
		{"• • double", "• double"},
		{"  a  <br><br><br>  b ", "a\nb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCell(tt.in), "input %q", tt.in)
	}
}

func TestCellWithBullets(t *testing.T) {
	blocks := ParseContent("| Area | Items |\n| API | Intro<br>• one<br>• two |")
	require.Len(t, blocks, 1)
	cell := blocks[0].Rows[1].Cells[1]
	assert.Equal(t, []CellLine{
		{Text: "Intro"},
		{Text: "one", Bullet: true},
		{Text: "two", Bullet: true},
	}, cell.Lines)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "PRD_2025-03-07.docx", FileName(generated))
	// the date is taken in UTC
	assert.Equal(t, "PRD_2025-03-07.docx", FileName(time.Date(2025, 3, 8, 1, 0, 0, 0, time.FixedZone("EET", 2*3600))))
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(b)
	}
	return files
}

// docText returns the character data of a WordprocessingML part.
func docText(t *testing.T, body string) string {
	t.Helper()
	var sb strings.Builder
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return sb.String()
		}
		require.NoError(t, err)
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
}

func TestWriteDOCX(t *testing.T) {
	doc := Transform("Search <v2>", []types.Section{
		{Title: "Metrics", Order: 1, Content: "| Metric | Target |\n| --- | --- |\n| p95 | 100ms |"},
		{Title: "Overview", Order: 0, Content: "Goals: ship & learn\n- one\n- two"},
	}, generated)

	var buf bytes.Buffer
	require.NoError(t, WriteDOCX(&buf, doc))

	files := readZip(t, buf.Bytes())
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		assert.Contains(t, files, name)
	}

	body := files["word/document.xml"]
	text := docText(t, body)
	assert.Contains(t, text, "Search <v2>")
	assert.Contains(t, text, "Generated on March 7, 2025")
	assert.Contains(t, text, "Goals:")
	assert.Contains(t, text, " ship & learn")
	assert.Contains(t, text, "p95")
	assert.Contains(t, body, "<w:tbl>")
	assert.Contains(t, body, `w:type="page"`)
	assert.Equal(t, 2, strings.Count(body, `"Heading2"`))
	assert.Less(t, strings.Index(text, "Overview"), strings.Index(text, "Metrics"))
}

func TestMarkdown(t *testing.T) {
	doc := Transform("Search", []types.Section{
		{Title: "Two", Order: 1, Content: "| a | b |\n| 1 | 2 |"},
		{Title: "One", Order: 0, Content: "### Sub\nGoals: x\n- i\ntext"},
	}, generated)

	want := "# Search\n\n_Generated on March 7, 2025_\n\n" +
		"## One\n\n### Sub\n\n**Goals:** x\n\n- i\n\ntext\n\n---\n\n" +
		"## Two\n\n| a | b |\n| --- | --- |\n| 1 | 2 |\n"
	assert.Equal(t, want, Markdown(doc))
}
