package terminal

import (
	"reflect"
	"testing"

	"github.com/mattn/go-runewidth"
)

// urlRow builds a row of cells from a string, one cell per rune. Wide
// runes get a trailing spacer cell, matching how the grid stores them.
func urlRow(s string) []Cell {
	var row []Cell
	for _, r := range s {
		row = append(row, Cell{Content: string(r)})
		if runewidth.RuneWidth(r) == 2 {
			row = append(row, Cell{})
		}
	}
	return row
}

func TestDetectURLs(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want []URLMatch
	}{
		{
			name: "https url mid text",
			row:  "see https://example.com/docs for more",
			want: []URLMatch{{Start: 4, End: 28, URL: "https://example.com/docs"}},
		},
		{
			name: "www gets scheme prepended",
			row:  "visit www.example.com today",
			want: []URLMatch{{Start: 6, End: 21, URL: "https://www.example.com"}},
		},
		{
			name: "trailing punctuation stripped",
			row:  "read https://example.com/a.",
			want: []URLMatch{{Start: 5, End: 26, URL: "https://example.com/a"}},
		},
		{
			name: "closing paren stripped without opener",
			row:  "(see https://example.com)",
			want: []URLMatch{{Start: 5, End: 24, URL: "https://example.com"}},
		},
		{
			name: "closing paren kept with matching opener",
			row:  "https://en.wikipedia.org/wiki/Go_(game)",
			want: []URLMatch{{Start: 0, End: 39, URL: "https://en.wikipedia.org/wiki/Go_(game)"}},
		},
		{
			name: "scheme without dot is not a url",
			row:  "http://localhost is fine",
			want: nil,
		},
		{
			name: "bare prefix is not a url",
			row:  "the https:// scheme",
			want: nil,
		},
		{
			name: "two urls in one row",
			row:  "http://a.io and www.b.io",
			want: []URLMatch{
				{Start: 0, End: 11, URL: "http://a.io"},
				{Start: 16, End: 24, URL: "https://www.b.io"},
			},
		},
		{
			name: "plain text has no matches",
			row:  "nothing to see here",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectURLs(urlRow(tt.row))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectURLs(%q) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func TestDetectURLs_WideGlyphsKeepColumns(t *testing.T) {
	// 界 occupies two columns, so the URL starts at column 3 even though
	// it is the third rune
	row := urlRow("界 https://example.com")
	got := DetectURLs(row)
	want := []URLMatch{{Start: 3, End: 22, URL: "https://example.com"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectURLs = %v, want %v", got, want)
	}
}
