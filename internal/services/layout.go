package services

import (
	"strings"

	"github.com/Lllllllleong/presentationflow/internal/models"
)

type lineKind int

const (
	lineBody lineKind = iota
	lineTitle
	lineGap
)

type layoutLine struct {
	kind lineKind
	text string
}

// measureFunc returns the printed width of s.
type measureFunc func(s string) float64

// pageLayout places section titles and bodies onto fixed-height pages.
type pageLayout struct {
	width        float64
	linesPerPage int
	measureTitle measureFunc
	measureBody  measureFunc
}

// paginate returns one slice of lines per page. There is always at least one
// page. Gap lines never start or overflow a page, and a title is never the
// last line of a page.
func (l pageLayout) paginate(sections []models.NarrativeSection) [][]layoutLine {
	perPage := l.linesPerPage
	if perPage < 2 {
		perPage = 2
	}
	pages := [][]layoutLine{nil}
	cur := func() []layoutLine { return pages[len(pages)-1] }
	newPage := func() { pages = append(pages, nil) }
	emit := func(ln layoutLine) {
		if ln.kind == lineGap && (len(cur()) == 0 || len(cur()) >= perPage) {
			return
		}
		if len(cur()) >= perPage {
			newPage()
		}
		pages[len(pages)-1] = append(pages[len(pages)-1], ln)
	}

	for _, s := range sections {
		title := wrapText(s.Title, l.width, l.measureTitle)
		body := l.wrapBody(s.Body)

		// Keep the title block, its gap and the first body line together.
		need := len(title) + 1
		if len(body) > 0 {
			need++
		}
		if len(cur()) > 0 && len(cur())+need > perPage {
			newPage()
		}
		for _, t := range title {
			emit(layoutLine{kind: lineTitle, text: t})
		}
		emit(layoutLine{kind: lineGap})
		for _, b := range body {
			emit(b)
		}
		emit(layoutLine{kind: lineGap})
	}
	return pages
}

// wrapBody wraps each paragraph of body separately. Blank paragraphs become
// gap lines.
func (l pageLayout) wrapBody(body string) []layoutLine {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	var lines []layoutLine
	for _, para := range strings.Split(strings.TrimSpace(body), "\n") {
		wrapped := wrapText(para, l.width, l.measureBody)
		if len(wrapped) == 0 {
			lines = append(lines, layoutLine{kind: lineGap})
			continue
		}
		for _, w := range wrapped {
			lines = append(lines, layoutLine{kind: lineBody, text: w})
		}
	}
	return lines
}

// wrapText greedily packs the words of text into lines no wider than width.
// A single word wider than width is split between runes.
func wrapText(text string, width float64, measure measureFunc) []string {
	words := strings.Fields(text)
	var lines []string
	var cur string
	for _, w := range words {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if measure(candidate) <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		if measure(w) <= width {
			cur = w
			continue
		}
		pieces := splitWord(w, width, measure)
		lines = append(lines, pieces[:len(pieces)-1]...)
		cur = pieces[len(pieces)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitWord cuts w into pieces that each fit width, on rune boundaries. Every
// piece holds at least one rune.
func splitWord(w string, width float64, measure measureFunc) []string {
	var pieces []string
	var cur []rune
	for _, r := range w {
		next := append(cur, r)
		if len(cur) > 0 && measure(string(next)) > width {
			pieces = append(pieces, string(cur))
			cur = []rune{r}
			continue
		}
		cur = next
	}
	if len(cur) > 0 {
		pieces = append(pieces, string(cur))
	}
	return pieces
}
