package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/export"
	"github.com/jamesruggles/alertavecinal/internal/intake"
)

func (s *Server) handleCreateHseq(w http.ResponseWriter, r *http.Request) {
	var req intake.HseqRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h, err := s.intake.SubmitHseq(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "report": h})
}

func (s *Server) handleListHseq(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := database.HseqFilter{
		Area: strings.TrimSpace(q.Get("area")),
		Type: strings.TrimSpace(q.Get("type")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := intake.ParseHseqStatus(raw)
		if err != nil {
			s.writeServiceError(w, err, "")
			return
		}
		f.Status = st
	}
	limit, err := queryLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	f.Limit = limit

	reports, err := s.db.ListHseqReports(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	if reports == nil {
		reports = []database.HseqReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": reports})
}

func (s *Server) handleChangeHseqStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h, err := s.intake.ChangeHseqStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeServiceError(w, err, "hseq report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": h})
}

func (s *Server) handleHseqSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.export.Summary(r.Context(), s.now())
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "summary": summary})
}

// handleHseqExport downloads the summary as markdown (default) or pdf.
func (s *Server) handleHseqExport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	stamp := now.UTC().Format("20060102")

	switch format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))); format {
	case "", "markdown", "md":
		md, err := s.export.HseqMarkdown(r.Context(), now)
		if err != nil {
			s.writeServiceError(w, err, "")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=hseq-summary-"+stamp+".md")
		w.Write([]byte(md))

	case "pdf":
		// Rendered into memory so a failure can still produce a JSON error.
		var buf bytes.Buffer
		err := s.export.HseqPDF(r.Context(), now, &buf)
		if errors.Is(err, export.ErrNoFont) {
			writeError(w, http.StatusServiceUnavailable, "pdf export is not configured")
			return
		}
		if err != nil {
			s.writeServiceError(w, err, "")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=hseq-summary-"+stamp+".pdf")
		w.Write(buf.Bytes())

	default:
		writeError(w, http.StatusBadRequest, "format must be 'markdown' or 'pdf'")
	}
}
