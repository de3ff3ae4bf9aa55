package server

import (
	"errors"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/geo"
	"github.com/jamesruggles/alertavecinal/internal/intake"
	"github.com/jamesruggles/alertavecinal/internal/validation"
)

const (
	defaultRadiusKm = 0.5
	formMemory      = 1 << 20
)

// reportView is the JSON shape of a report. weapon_detected mirrors
// has_weapon for older clients.
type reportView struct {
	database.Report
	WeaponDetected bool     `json:"weapon_detected"`
	DistanceKm     *float64 `json:"distance_km,omitempty"`
}

func viewOf(r database.Report) reportView {
	return reportView{Report: r, WeaponDetected: r.HasWeapon}
}

// listBody answers a report list under data plus the items and reports
// keys older panel builds still read.
func listBody(views []reportView) map[string]any {
	return map[string]any{"ok": true, "data": views, "items": views, "reports": views}
}

func viewsOf(reports []database.Report) []reportView {
	out := make([]reportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, viewOf(r))
	}
	return out
}

// parseCoord returns nil for a missing value so validation can report it.
func parseCoord(raw, field string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, validation.Errorf(field, "%s must be a number", field)
	}
	return &v, nil
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Uploads.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formMemory)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusBadRequest, intake.ErrImageTooLarge.Error())
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form data")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
	}

	lat, err := parseCoord(r.FormValue("latitude"), "latitude")
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	lng, err := parseCoord(r.FormValue("longitude"), "longitude")
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}

	sub := intake.Submission{
		ReportType:  r.FormValue("report_type"),
		Description: r.FormValue("description"),
		Latitude:    lat,
		Longitude:   lng,
		PlateText:   r.FormValue("plate_text"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read image")
			return
		}
		sub.Image = &intake.Upload{Filename: header.Filename, Data: data}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		writeError(w, http.StatusBadRequest, "invalid image upload")
		return
	}

	report, err := s.intake.Submit(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "report": viewOf(*report)})
}

func (s *Server) statusFilter(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return "", nil
	}
	return intake.ParseReportStatus(raw)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	status, err := s.statusFilter(r)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	limit, err := queryLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}

	reports, err := s.db.ListReports(r.Context(), database.ReportFilter{Status: status, Limit: limit})
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, listBody(viewsOf(reports)))
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := s.db.GetReport(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	body := map[string]any{"ok": true, "report": viewOf(*report)}
	if report.Source == database.SourcePanic {
		ev, err := s.db.GetPanicEventByReport(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err, "")
			return
		}
		if ev != nil {
			body["panic_event"] = ev
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// handleNearbyReports answers reports within radius_km of (lat, lng),
// closest first.
func (s *Server) handleNearbyReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(q.Get("lng")), 64)
	if err1 != nil || err2 != nil || !geo.ValidCoordinates(lat, lng) {
		writeError(w, http.StatusBadRequest, "lat and lng are required and must be valid coordinates")
		return
	}

	radius := defaultRadiusKm
	if raw := strings.TrimSpace(q.Get("radius_km")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, "radius_km must be a positive number")
			return
		}
		if v > 0 {
			radius = v
		}
	}

	candidates, err := s.db.ListReportsInBox(r.Context(), geo.BoundingBox(lat, lng, radius))
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}

	out := make([]reportView, 0, len(candidates))
	for _, c := range candidates {
		d := geo.HaversineKm(lat, lng, c.Latitude, c.Longitude)
		if d > radius {
			continue
		}
		v := viewOf(c)
		v.DistanceKm = &d
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].DistanceKm != *out[j].DistanceKm {
			return *out[i].DistanceKm < *out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": out})
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	status, err := s.statusFilter(r)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	points, err := s.db.ListReportPoints(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": geo.Heatmap(points)})
}

func (s *Server) handleAppendTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req intake.TrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := s.intake.Track(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, err, "report not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "point": p})
}

func (s *Server) handleListTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := s.db.GetReport(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	points, err := s.db.ListTrackPoints(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "")
		return
	}
	if points == nil {
		points = []database.TrackPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": points})
}
