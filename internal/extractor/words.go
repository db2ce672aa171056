package extractor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Word is a positioned text token on a page. Top grows downward, matching
// the top-left origin the table heuristics expect; X0/X1 are the left and
// right edges.
type Word struct {
	Text string
	X0   float64
	X1   float64
	Top  float64
}

// Center returns the horizontal center of the word.
func (w Word) Center() float64 {
	return (w.X0 + w.X1) / 2
}

// wordGapTolerance is the maximum horizontal gap, in page units, between
// two text fragments that still belong to the same word. PDF text content
// arrives as fragments (often per glyph run); anything closer than this is
// glued together.
const wordGapTolerance = 1.5

// defaultPageHeight is used when a page carries no resolvable MediaBox.
// A4 portrait in PDF units.
const defaultPageHeight = 842.0

// ExtractWords reads a PDF and returns, for each page, its positioned words
// assembled from the raw text fragments.
func ExtractWords(filePath string) (pages [][]Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, fmt.Errorf("open PDF %q: %w", filePath, openErr)
	}
	defer f.Close()

	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		height := pageHeight(page)
		pages = append(pages, assembleWords(page.Content().Text, height))
	}
	return pages, nil
}

// pageHeight resolves the page's MediaBox height, falling back to A4.
func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Len() < 4 {
		return defaultPageHeight
	}
	top := box.Index(3).Float64()
	bottom := box.Index(1).Float64()
	if top <= bottom {
		return defaultPageHeight
	}
	return top - bottom
}

// assembleWords merges raw text fragments into words: fragments are grouped
// into visual rows by rounded Y, ordered left to right, and glued together
// while the horizontal gap stays below wordGapTolerance. The PDF's
// bottom-up Y is converted into a top-down Top coordinate.
func assembleWords(items []pdf.Text, height float64) []Word {
	rows := make(map[int][]pdf.Text)
	for _, t := range items {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		yKey := int(math.Round(t.Y))
		rows[yKey] = append(rows[yKey], t)
	}

	yKeys := make([]int, 0, len(rows))
	for y := range rows {
		yKeys = append(yKeys, y)
	}
	// Top of page first: highest PDF Y first
	sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

	var words []Word
	for _, y := range yKeys {
		frags := rows[y]
		sort.Slice(frags, func(a, b int) bool {
			return frags[a].X < frags[b].X
		})

		var cur *Word
		var curEnd float64
		for _, frag := range frags {
			fragEnd := frag.X + frag.W
			if cur != nil && frag.X-curEnd <= wordGapTolerance {
				cur.Text += frag.S
				if fragEnd > cur.X1 {
					cur.X1 = fragEnd
				}
				curEnd = fragEnd
				continue
			}
			if cur != nil && strings.TrimSpace(cur.Text) != "" {
				words = append(words, *cur)
			}
			cur = &Word{
				Text: frag.S,
				X0:   frag.X,
				X1:   fragEnd,
				Top:  height - frag.Y,
			}
			curEnd = fragEnd
		}
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			words = append(words, *cur)
		}
	}

	for i := range words {
		words[i].Text = strings.TrimSpace(words[i].Text)
	}
	return words
}
