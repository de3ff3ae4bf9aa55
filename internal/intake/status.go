package intake

import (
	"strings"

	"github.com/jamesruggles/alertavecinal/internal/database"
	"github.com/jamesruggles/alertavecinal/internal/validation"
)

// The mobile and admin clients still send the Spanish names.
var reportStatuses = map[string]string{
	database.StatusPending:  database.StatusPending,
	database.StatusVerified: database.StatusVerified,
	database.StatusFalse:    database.StatusFalse,
	"pendiente":             database.StatusPending,
	"verificado":            database.StatusVerified,
	"falso":                 database.StatusFalse,
}

var hseqStatuses = map[string]string{
	database.HseqOpen:       database.HseqOpen,
	database.HseqInProgress: database.HseqInProgress,
	database.HseqClosed:     database.HseqClosed,
	database.HseqOverdue:    database.HseqOverdue,
	"abierto":               database.HseqOpen,
	"en_progreso":           database.HseqInProgress,
	"cerrado":               database.HseqClosed,
	"vencido":               database.HseqOverdue,
}

// ParseReportStatus maps s onto pending, verified or false.
func ParseReportStatus(s string) (string, error) {
	if st, ok := reportStatuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", validation.Errorf("status", "invalid status %q: must be one of pending, verified, false", s)
}

func ParseHseqStatus(s string) (string, error) {
	if st, ok := hseqStatuses[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", validation.Errorf("status", "invalid status %q: must be one of open, in_progress, closed, overdue", s)
}
