package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/signintech/gopdf"

	"github.com/jamesruggles/alertavecinal/internal/database"
)

const (
	pdfMargin     = 40.0
	pdfLine       = 16.0
	pdfPageBottom = 800.0
	fontFamily    = "body"
)

// HseqPDF writes the summary as an A4 PDF. It returns ErrNoFont when no font
// is configured.
func (g *Generator) HseqPDF(ctx context.Context, now time.Time, w io.Writer) error {
	if !g.CanRenderPDF() {
		return ErrNoFont
	}
	s, err := g.Summary(ctx, now)
	if err != nil {
		return err
	}

	doc, err := newDocument(g.fontPath)
	if err != nil {
		return err
	}
	if err := doc.render(s); err != nil {
		return err
	}
	if _, err := doc.pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type document struct {
	pdf *gopdf.GoPdf
}

func newDocument(fontPath string) (*document, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin, pdfMargin)
	if err := pdf.AddTTFFont(fontFamily, fontPath); err != nil {
		return nil, fmt.Errorf("load font %s: %w", fontPath, err)
	}
	pdf.AddPage()
	return &document{pdf: pdf}, nil
}

func (d *document) line(size int, text string) error {
	if d.pdf.GetY() > pdfPageBottom {
		d.pdf.AddPage()
	}
	if err := d.pdf.SetFont(fontFamily, "", size); err != nil {
		return fmt.Errorf("set font: %w", err)
	}
	d.pdf.SetX(pdfMargin)
	if err := d.pdf.Cell(nil, text); err != nil {
		return fmt.Errorf("write cell: %w", err)
	}
	d.pdf.Br(pdfLine + float64(size-11))
	return nil
}

type textLine struct {
	size int
	text string
}

func (d *document) render(s *database.HseqSummary) error {
	lines := []textLine{
		{18, "HSEQ Summary"},
		{11, "Period: " + s.Since.Format("2006-01-02") + " to " + s.Until.Format("2006-01-02")},
		{11, "Incidents: " + strconv.Itoa(s.Total)},
	}

	sections := []struct {
		title  string
		counts []database.Count
	}{
		{"By status", s.ByStatus},
		{"By risk level", s.ByRisk},
		{"By type", s.ByType},
		{"By area", s.ByArea},
	}
	for _, sec := range sections {
		lines = append(lines, textLine{14, sec.title})
		for _, c := range sec.counts {
			lines = append(lines, textLine{11, fmt.Sprintf("%s: %d", cellText(c.Key), c.Count)})
		}
	}

	lines = append(lines, textLine{14, "High-risk incidents still open"})
	if len(s.OpenHighRisk) == 0 {
		lines = append(lines, textLine{11, "None."})
	}
	for _, h := range s.OpenHighRisk {
		lines = append(lines, textLine{11, fmt.Sprintf("#%d %s  %s / %s  %s", h.ID, h.CreatedAt.Format("2006-01-02"),
			cellText(h.Type), cellText(h.Area), h.Status)})
	}

	for _, l := range lines {
		if err := d.line(l.size, l.text); err != nil {
			return err
		}
	}
	return nil
}
