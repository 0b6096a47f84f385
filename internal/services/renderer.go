package services

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Lllllllleong/presentationflow/internal/models"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Page geometry in millimetres, A4 portrait.
const (
	pageHeight   = 297.0
	marginLeft   = 10.0
	marginTop    = 10.0
	marginRight  = 10.0
	contentWidth = 210.0 - marginLeft - marginRight
	headerHeight = 10.0
	bodyTop      = marginTop + headerHeight + 5
	bodyBottom   = pageHeight - 20
	lineHeight   = 10.0
	fontFamily   = "Go"
	fontSize     = 12.0
)

const (
	DefaultHeader   = "PDF Presentation"
	DefaultFilename = "presentation.pdf"
	pdfMIMEType     = "application/pdf"
)

var disableConfigDir sync.Once

// bodyLines is the number of body lines that fit between the header and the
// footer.
func bodyLines() int {
	h := bodyBottom - bodyTop
	return int(h / lineHeight)
}

// drawable maps code points outside the Basic Multilingual Plane, which the
// embedded fonts cannot address, to U+FFFD.
func drawable(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return utf8.RuneError
		}
		return r
	}, s)
}

// RendererConfig sets the running header and the suggested output filename.
type RendererConfig struct {
	Header   string
	Filename string
}

// Renderer lays out narrative sections as a paginated PDF held in memory.
type Renderer struct {
	config RendererConfig
}

func NewRenderer(cfg RendererConfig) *Renderer {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if cfg.Filename == "" {
		cfg.Filename = DefaultFilename
	}
	cfg.Header = drawable(cfg.Header)
	return &Renderer{config: cfg}
}

// Render produces the presentation PDF. An empty section list yields a single
// page carrying only the header and footer.
func (r *Renderer) Render(sections []models.NarrativeSection) (doc *models.RenderedDocument, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, &RenderError{Err: fmt.Errorf("pdf writer: %v", p)}
		}
	}()

	clean := make([]models.NarrativeSection, len(sections))
	for i, s := range sections {
		clean[i] = models.NarrativeSection{Title: drawable(s.Title), Body: drawable(s.Body)}
	}

	pdf := r.newDocument()

	layout := pageLayout{
		width:        contentWidth,
		linesPerPage: bodyLines(),
		measureTitle: measureWith(pdf, "B"),
		measureBody:  measureWith(pdf, ""),
	}
	pages := layout.paginate(clean)

	for _, lines := range pages {
		pdf.AddPage()
		pdf.SetY(bodyTop)
		for _, ln := range lines {
			switch ln.kind {
			case lineGap:
				pdf.Ln(lineHeight)
			case lineTitle:
				pdf.SetFont(fontFamily, "B", fontSize)
				pdf.CellFormat(0, lineHeight, ln.text, "", 1, "L", false, 0, "")
			default:
				pdf.SetFont(fontFamily, "", fontSize)
				pdf.CellFormat(0, lineHeight, ln.text, "", 1, "L", false, 0, "")
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Err: err}
	}

	count, err := verifyPageCount(buf.Bytes())
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("verify output: %w", err)}
	}
	if count != len(pages) {
		return nil, &RenderError{Err: fmt.Errorf("output has %d pages, laid out %d", count, len(pages))}
	}

	return &models.RenderedDocument{
		PageCount: count,
		Bytes:     buf.Bytes(),
		Filename:  r.config.Filename,
		MIMEType:  pdfMIMEType,
	}, nil
}

func (r *Renderer) newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "I", goitalic.TTF)
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(fontFamily, "", fontSize)

	header := r.config.Header
	pdf.SetHeaderFunc(func() {
		pdf.SetFont(fontFamily, "B", fontSize)
		pdf.CellFormat(0, headerHeight, header, "", 1, "C", false, 0, "")
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, "Page "+strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return pdf
}

// measureWith measures strings in the given style of the body font. It
// restores the regular style afterwards.
func measureWith(pdf *fpdf.Fpdf, style string) measureFunc {
	return func(s string) float64 {
		pdf.SetFont(fontFamily, style, fontSize)
		w := pdf.GetStringWidth(s)
		pdf.SetFont(fontFamily, "", fontSize)
		return w
	}
}

func verifyPageCount(b []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(b), conf)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("no pages")
	}
	return n, nil
}
