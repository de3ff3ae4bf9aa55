package server

import (
	"net/http"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/intake"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

func (s *Server) handleAdminReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := database.ReportFilter{}

	var err error
	if f.Status, err = s.statusFilter(r); err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	if raw := strings.TrimSpace(q.Get("risk_level")); raw != "" {
		lvl, err := risk.ParseLevel(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "risk_level must be one of low, medium, high")
			return
		}
		f.RiskLevel = lvl
	}
	switch src := strings.ToLower(strings.TrimSpace(q.Get("source"))); src {
	case "":
	case database.SourceCitizen, "ciudadano":
		f.Source = database.SourceCitizen
	case database.SourcePanic, "panico":
		f.Source = database.SourcePanic
	default:
		writeError(w, http.StatusBadRequest, "source must be citizen or panic")
		return
	}
	if f.Limit, err = queryLimit(r, 0, 0); err != nil {
		s.writeServiceError(w, err, "")
		return
	}

	reports, err := s.db.ListReports(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, listBody(viewsOf(reports)))
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
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

	report, err := s.intake.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeServiceError(w, err, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": viewOf(*report)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"stats":       stats,
		"subscribers": s.hub.Subscribers(intake.TopicAlerts),
	})
}

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request) {
	var req intake.PanicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	report, ev, err := s.intake.Panic(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":          true,
		"report":      viewOf(*report),
		"panic_event": ev,
	})
}
