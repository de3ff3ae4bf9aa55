package database

import (
	"time"

	"github.com/jamesruggles/alertavecinal/internal/risk"
)

// Report statuses.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusFalse    = "false"
)

// Report sources.
const (
	SourceCitizen = "citizen"
	SourcePanic   = "panic"
)

// HSEQ statuses.
const (
	HseqOpen       = "open"
	HseqInProgress = "in_progress"
	HseqClosed     = "closed"
	HseqOverdue    = "overdue"
)

type Report struct {
	ID           int64      `json:"id"`
	ReportType   string     `json:"report_type"`
	Description  string     `json:"description"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	ImagePath    *string    `json:"image_path"`
	RiskLevel    risk.Level `json:"risk_level"`
	HasWeapon    bool       `json:"has_weapon"`
	HasVehicle   bool       `json:"has_vehicle"`
	PlateText    *string    `json:"plate_text"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	AISummary    string     `json:"ai_raw_summary"`
	AIConfidence float64    `json:"ai_confidence"`
	AIOutcome    string     `json:"ai_outcome"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type TrackPoint struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

type PanicEvent struct {
	ID          int64     `json:"id"`
	ReportID    int64     `json:"report_id"`
	UserID      *int64    `json:"user_id"`
	Mode        string    `json:"mode"`
	UnderDuress bool      `json:"under_duress"`
	CreatedAt   time.Time `json:"created_at"`
}

type HseqReport struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Area        string     `json:"area"`
	Shift       string     `json:"shift"`
	Description string     `json:"description"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	ImagePath   *string    `json:"image_path"`
	RiskLevel   risk.Level `json:"risk_level"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ReportFilter narrows ListReports. Zero values mean "any".
type ReportFilter struct {
	Status    string
	RiskLevel risk.Level
	Source    string
	Limit     int
}

// HseqFilter narrows ListHseqReports. Zero values mean "any".
type HseqFilter struct {
	Status string
	Area   string
	Type   string
	Limit  int
}

// Count is one labelled tally in a summary.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// HseqSummary aggregates HSEQ incidents created within a window.
type HseqSummary struct {
	Since        time.Time    `json:"since"`
	Until        time.Time    `json:"until"`
	Total        int          `json:"total"`
	ByStatus     []Count      `json:"by_status"`
	ByRisk       []Count      `json:"by_risk"`
	ByType       []Count      `json:"by_type"`
	ByArea       []Count      `json:"by_area"`
	OpenHighRisk []HseqReport `json:"open_high_risk"`
}

type DashboardStats struct {
	ReportCount int            `json:"report_count"`
	ByStatus    map[string]int `json:"by_status"`
	ByRisk      map[string]int `json:"by_risk"`
	PanicCount  int            `json:"panic_count"`
	HseqCount   int            `json:"hseq_count"`
}
