package terminal

import "strings"

// URLMatch is a URL found in a row of cells. Start and End are column
// indexes (End exclusive), so wide glyphs elsewhere in the row never
// shift the reported range.
type URLMatch struct {
	Start int
	End   int
	URL   string
}

// DetectURLs scans a row of cells for http, https and www URLs. Bare
// www addresses get an https scheme prepended in the returned URL.
func DetectURLs(row []Cell) []URLMatch {
	var matches []URLMatch
	n := len(row)
	i := 0
	for i < n {
		var prefixLen int
		var addedScheme string
		switch {
		case startsWithAt(row, i, "https://"):
			prefixLen = 8
		case startsWithAt(row, i, "http://"):
			prefixLen = 7
		case startsWithAt(row, i, "www."):
			prefixLen, addedScheme = 4, "https://"
		default:
			i++
			continue
		}

		start := i
		end := start
		for end < n {
			b, ok := cellByte(row[end])
			if !ok || !isURLByte(b) {
				break
			}
			end++
		}

		// Trailing punctuation reads as prose, not as part of the URL
	trim:
		for end > start {
			b, _ := cellByte(row[end-1])
			switch b {
			case '.', ',', ';', ':', '!', '?', '\'', '"':
				end--
			case ')':
				// A matching ( inside the URL keeps the )
				if containsByte(row, start, end, '(') {
					break trim
				}
				end--
			default:
				break trim
			}
		}

		if end <= start+prefixLen {
			i = start + 1
			if end > i {
				i = end
			}
			continue
		}

		var sb strings.Builder
		for _, c := range row[start:end] {
			sb.WriteString(c.Content)
		}
		text := sb.String()

		// At least one dot past the scheme separates a URL from a stray
		// prefix
		if strings.Contains(text[prefixLen:], ".") {
			matches = append(matches, URLMatch{
				Start: start,
				End:   end,
				URL:   addedScheme + text,
			})
		}
		i = end
	}
	return matches
}

// cellByte returns the cell's content as a single ASCII byte, if it is one
func cellByte(c Cell) (byte, bool) {
	if len(c.Content) != 1 || c.Content[0] >= 0x80 {
		return 0, false
	}
	return c.Content[0], true
}

func startsWithAt(row []Cell, col int, pattern string) bool {
	if col+len(pattern) > len(row) {
		return false
	}
	for j := 0; j < len(pattern); j++ {
		b, ok := cellByte(row[col+j])
		if !ok || b != pattern[j] {
			return false
		}
	}
	return true
}

func containsByte(row []Cell, start, end int, target byte) bool {
	for _, c := range row[start:end] {
		if b, ok := cellByte(c); ok && b == target {
			return true
		}
	}
	return false
}

func isURLByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '.', '_', '~', ':', '/', '?', '#', '[', ']', '@',
		'!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', '%':
		return true
	}
	return false
}
