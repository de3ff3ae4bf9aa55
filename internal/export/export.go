// Package export renders the 30-day HSEQ summary for download.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jamesruggles/alertavecinal/internal/database"
)

// Window is the period covered by the HSEQ summary.
const Window = 30 * 24 * time.Hour

// ErrNoFont means PDF export was requested without a configured TTF font.
var ErrNoFont = errors.New("pdf export needs a TTF font path")

type Summarizer interface {
	HseqSummarySince(ctx context.Context, since, until time.Time) (*database.HseqSummary, error)
}

type Generator struct {
	db       Summarizer
	fontPath string
}

func NewGenerator(db Summarizer, fontPath string) *Generator {
	return &Generator{db: db, fontPath: fontPath}
}

func (g *Generator) CanRenderPDF() bool { return g.fontPath != "" }

// Summary covers the Window ending at now.
func (g *Generator) Summary(ctx context.Context, now time.Time) (*database.HseqSummary, error) {
	s, err := g.db.HseqSummarySince(ctx, now.Add(-Window), now)
	if err != nil {
		return nil, fmt.Errorf("hseq summary: %w", err)
	}
	return s, nil
}

func (g *Generator) HseqMarkdown(ctx context.Context, now time.Time) (string, error) {
	s, err := g.Summary(ctx, now)
	if err != nil {
		return "", err
	}
	return renderMarkdown(s), nil
}

func renderMarkdown(s *database.HseqSummary) string {
	var b strings.Builder

	b.WriteString("# HSEQ Summary\n\n")
	fmt.Fprintf(&b, "**Period:** %s to %s  \n", s.Since.Format("2006-01-02"), s.Until.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Incidents:** %d\n\n", s.Total)

	tables := []struct {
		title  string
		label  string
		counts []database.Count
	}{
		{"By status", "Status", s.ByStatus},
		{"By risk level", "Risk", s.ByRisk},
		{"By type", "Type", s.ByType},
		{"By area", "Area", s.ByArea},
	}
	for _, t := range tables {
		fmt.Fprintf(&b, "## %s\n\n", t.title)
		if len(t.counts) == 0 {
			b.WriteString("No incidents.\n\n")
			continue
		}
		fmt.Fprintf(&b, "| %s | Count |\n|---|---|\n", t.label)
		for _, c := range t.counts {
			fmt.Fprintf(&b, "| %s | %d |\n", cellText(c.Key), c.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("## High-risk incidents still open\n\n")
	if len(s.OpenHighRisk) == 0 {
		b.WriteString("None.\n")
		return b.String()
	}
	b.WriteString("| ID | Reported | Type | Area | Shift | Status | Description |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, h := range s.OpenHighRisk {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			h.ID, h.CreatedAt.Format("2006-01-02 15:04"), cellText(h.Type), cellText(h.Area),
			cellText(h.Shift), h.Status, cellText(shorten(h.Description, 100)))
	}
	return b.String()
}

// cellText keeps a value from breaking the table layout.
func cellText(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
