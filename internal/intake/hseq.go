package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/risk"
	"github.com/jamesruggles/alertavecinal/internal/validation"
)

type HseqRequest struct {
	Type        string   `json:"type" validate:"required,max=50"`
	Area        string   `json:"area" validate:"max=120"`
	Shift       string   `json:"shift" validate:"omitempty,oneof=dia tarde noche"`
	Description string   `json:"description" validate:"max=5000"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
	RiskLevel   string   `json:"risk_level"`
	Status      string   `json:"status"`
}

// SubmitHseq stores a workplace safety incident. Risk defaults to medium and
// status to open.
func (s *Service) SubmitHseq(ctx context.Context, req HseqRequest) (*database.HseqReport, error) {
	req.Type = strings.TrimSpace(req.Type)
	req.Area = strings.TrimSpace(req.Area)
	req.Shift = strings.ToLower(strings.TrimSpace(req.Shift))
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, validation.Errorf("latitude", "latitude and longitude must be given together")
	}

	h := &database.HseqReport{
		Type:        req.Type,
		Area:        req.Area,
		Shift:       req.Shift,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		RiskLevel:   risk.Medium,
		Status:      database.HseqOpen,
	}
	if req.RiskLevel != "" {
		lvl, err := risk.ParseLevel(req.RiskLevel)
		if err != nil {
			return nil, validation.Errorf("risk_level", "risk_level must be one of low, medium, high")
		}
		h.RiskLevel = lvl
	}
	if req.Status != "" {
		st, err := ParseHseqStatus(req.Status)
		if err != nil {
			return nil, err
		}
		h.Status = st
	}

	if err := s.store.CreateHseqReport(ctx, h); err != nil {
		return nil, fmt.Errorf("create hseq report: %w", err)
	}
	s.logger.Info("hseq report created", "id", h.ID, "type", h.Type, "risk_level", h.RiskLevel)
	return h, nil
}

func (s *Service) ChangeHseqStatus(ctx context.Context, id int64, status string) (*database.HseqReport, error) {
	h, err := s.store.GetHseqReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, database.ErrNotFound
	}
	st, err := ParseHseqStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateHseqStatus(ctx, id, st); err != nil {
		return nil, err
	}
	h, err = s.store.GetHseqReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, database.ErrNotFound
	}
	return h, nil
}
