// Package intake turns citizen submissions into stored reports: it saves the
// evidence file, scores the text and image, persists the result and tells the
// admin feed about it.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/risk"
	"github.com/jamesruggles/alertavecinal/internal/validation"
	"github.com/jamesruggles/alertavecinal/internal/vision"
)

const (
	defaultReportType = "emergency"
	panicReportType   = "panic"
	panicDescription  = "Panic button pressed in the app."
)

// Store is the subset of *database.DB the service needs.
type Store interface {
	CreateReport(ctx context.Context, r *database.Report) error
	GetReport(ctx context.Context, id int64) (*database.Report, error)
	UpdateReportStatus(ctx context.Context, id int64, status string) error
	CreatePanicReport(ctx context.Context, r *database.Report, ev *database.PanicEvent) error
	AppendTrackPoint(ctx context.Context, p *database.TrackPoint) error
	CreateHseqReport(ctx context.Context, h *database.HseqReport) error
	GetHseqReport(ctx context.Context, id int64) (*database.HseqReport, error)
	UpdateHseqStatus(ctx context.Context, id int64, status string) error
}

type ImageAnalyzer interface {
	Analyze(ctx context.Context, image []byte) vision.Analysis
}

// Recorder counts stored reports. *metrics.Metrics satisfies it.
type Recorder interface {
	ReportCreated(source, riskLevel string)
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	Feed           Broadcaster
	Recorder       Recorder
	Logger         *slog.Logger
}

type Service struct {
	store    Store
	analyzer ImageAnalyzer
	uploads  *uploadStore
	feed     Broadcaster
	recorder Recorder
	logger   *slog.Logger
}

func NewService(store Store, analyzer ImageAnalyzer, opts Options) *Service {
	s := &Service{
		store:    store,
		analyzer: analyzer,
		uploads:  &uploadStore{dir: opts.UploadDir, maxBytes: opts.MaxUploadBytes},
		feed:     opts.Feed,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
	if s.analyzer == nil {
		s.analyzer = noAnalyzer{}
	}
	if s.feed == nil {
		s.feed = discard{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Upload is an evidence file attached to a submission.
type Upload struct {
	Filename string
	Data     []byte
}

type Submission struct {
	ReportType  string   `json:"report_type" validate:"max=50"`
	Description string   `json:"description" validate:"max=5000"`
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	PlateText   string   `json:"plate_text" validate:"max=20"`
	Image       *Upload  `json:"-"`
}

// Submit stores a citizen report. Vision failures never fail the call.
func (s *Service) Submit(ctx context.Context, sub Submission) (*database.Report, error) {
	sub.ReportType = strings.TrimSpace(sub.ReportType)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.PlateText = strings.TrimSpace(sub.PlateText)
	if sub.ReportType == "" {
		sub.ReportType = defaultReportType
	}
	if err := validation.Struct(&sub); err != nil {
		return nil, err
	}

	r := &database.Report{
		ReportType:  sub.ReportType,
		Description: sub.Description,
		Latitude:    *sub.Latitude,
		Longitude:   *sub.Longitude,
		Status:      database.StatusPending,
		Source:      database.SourceCitizen,
	}

	var analysis *vision.Analysis
	if sub.Image != nil && len(sub.Image.Data) > 0 {
		path, err := s.uploads.save(sub.Image.Filename, sub.Image.Data)
		if err != nil {
			return nil, err
		}
		r.ImagePath = &path

		a := s.analyzer.Analyze(ctx, sub.Image.Data)
		analysis = &a
	}

	text := risk.ClassifyText(sub.Description)
	verdict := Merge(text, analysis, sub.PlateText)
	r.RiskLevel = verdict.Level
	r.HasWeapon = verdict.HasWeapon
	r.HasVehicle = verdict.HasVehicle
	r.AISummary = verdict.Summary
	r.AIConfidence = verdict.Confidence
	r.AIOutcome = string(verdict.Outcome)
	if verdict.Plate != "" {
		plate := verdict.Plate
		r.PlateText = &plate
	}

	if err := s.store.CreateReport(ctx, r); err != nil {
		s.uploads.remove(r.ImagePath)
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info("report created",
		"id", r.ID,
		"risk_level", r.RiskLevel,
		"text_risk", text.Level,
		"has_image", r.ImagePath != nil,
		"ai_outcome", r.AIOutcome,
	)
	s.created(r)
	s.feed.Broadcast(TopicAlerts, Event{Type: EventReportCreated, ReportID: r.ID, Data: r})
	return r, nil
}

type PanicRequest struct {
	Latitude    *float64 `json:"latitude" validate:"required,latitude"`
	Longitude   *float64 `json:"longitude" validate:"required,longitude"`
	UnderDuress bool     `json:"under_duress"`
	Mode        string   `json:"mode" validate:"omitempty,oneof=normal silent"`
	UserID      *int64   `json:"user_id"`
}

// Panic stores a high-risk report together with its panic event.
func (s *Service) Panic(ctx context.Context, req PanicRequest) (*database.Report, *database.PanicEvent, error) {
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	if req.Mode == "" {
		req.Mode = "normal"
	}
	if err := validation.Struct(&req); err != nil {
		return nil, nil, err
	}

	r := &database.Report{
		ReportType:  panicReportType,
		Description: panicDescription,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		RiskLevel:   risk.High,
		Status:      database.StatusPending,
		Source:      database.SourcePanic,
		AIOutcome:   string(vision.OutcomeSkipped),
	}
	ev := &database.PanicEvent{
		UserID:      req.UserID,
		Mode:        req.Mode,
		UnderDuress: req.UnderDuress,
	}
	if err := s.store.CreatePanicReport(ctx, r, ev); err != nil {
		return nil, nil, fmt.Errorf("create panic report: %w", err)
	}

	s.logger.Warn("panic button", "report_id", r.ID, "mode", ev.Mode, "under_duress", ev.UnderDuress)
	s.created(r)
	s.feed.Broadcast(TopicAlerts, Event{
		Type:     EventPanicCreated,
		ReportID: r.ID,
		Data:     map[string]any{"report": r, "panic_event": ev},
	})
	return r, ev, nil
}

// ChangeStatus moves a report to pending, verified or false. A missing
// report yields database.ErrNotFound.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status string) (*database.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, database.ErrNotFound
	}
	st, err := ParseReportStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateReportStatus(ctx, id, st); err != nil {
		return nil, err
	}
	r, err = s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, database.ErrNotFound
	}

	ev := Event{Type: EventReportStatus, ReportID: id, Data: r}
	s.feed.Broadcast(TopicAlerts, ev)
	s.feed.Broadcast(id, ev)
	return r, nil
}

type TrackRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// Track appends a point to a report's escape route.
func (s *Service) Track(ctx context.Context, reportID int64, req TrackRequest) (*database.TrackPoint, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	p := &database.TrackPoint{ReportID: reportID, Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := s.store.AppendTrackPoint(ctx, p); err != nil {
		return nil, err
	}
	s.feed.Broadcast(reportID, Event{Type: EventTrackPoint, ReportID: reportID, Data: p})
	return p, nil
}

type noAnalyzer struct{}

func (noAnalyzer) Analyze(context.Context, []byte) vision.Analysis {
	return vision.Analysis{
		Outcome:       vision.OutcomeSkipped,
		WeaponOutcome: vision.OutcomeSkipped,
		PlateOutcome:  vision.OutcomeSkipped,
		Level:         risk.Low,
		Summary:       "Image analysis: not available. Risk LOW.",
	}
}

func (s *Service) created(r *database.Report) {
	if s.recorder != nil {
		s.recorder.ReportCreated(r.Source, string(r.RiskLevel))
	}
}
