package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "table gets a single separator",
			in:   "|Name|Owner|\n|:---|---:|\n|API|Ana|",
			want: "| Name | Owner |\n| --- | --- |\n| API | Ana |",
		},
		{
			name: "table without separator",
			in:   "| H1 | H2 |\n| a | b |\nafter",
			want: "| H1 | H2 |\n| --- | --- |\n| a | b |\nafter",
		},
		{
			name: "html list",
			in:   "<ul><li>one</li><li>two</li></ul>",
			want: "• one• two",
		},
		{
			name: "star bullets and stray tags",
			in:   "* first\n* <b>second</b>",
			want: "• first\n• second",
		},
		{
			name: "headings get spacing",
			in:   "intro\n## Scope\nbody",
			want: "intro\n\n## Scope\n\nbody",
		},
		{
			name: "blank runs collapse",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "cell bullets and quotes",
			in:   "| Item | Note |\n| --- | --- |\n| - x | “quoted” |",
			want: "| Item | Note |\n| --- | --- |\n| • x | \"quoted\" |",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMarkdown(tt.in))
		})
	}
}

func TestNormalizeMarkdownIsIdempotent(t *testing.T) {
	inputs := []string{
		"### Title\ntext<br>more\n\n\n| a | b |\n|---|---|\n| 1 | 2<br/>3 |\n* x\n## Next",
		"<ol><li>a</li></ol>\n\n\n\n# H",
		"plain line",
	}
	for _, in := range inputs {
		once := NormalizeMarkdown(in)
		assert.Equal(t, once, NormalizeMarkdown(once), "input %q", in)
	}
}
