package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesruggles/alertavecinal/internal/risk"
)

func TestCreateHseqReport_Defaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h := &HseqReport{Type: "casi_accidente", Area: "Planta 1", Shift: "noche"}
	require.NoError(t, db.CreateHseqReport(ctx, h))
	require.NotZero(t, h.ID)

	got, err := db.GetHseqReport(ctx, h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, risk.Medium, got.RiskLevel)
	assert.Equal(t, HseqOpen, got.Status)
	assert.Equal(t, "Planta 1", got.Area)
	assert.Nil(t, got.Latitude)
	assert.Nil(t, got.ImagePath)

	none, err := db.GetHseqReport(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListHseqReports(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lat, lng := -33.4, -70.6
	seed := []HseqReport{
		{Type: "accidente", Area: "Planta 1", Status: HseqOpen},
		{Type: "accidente", Area: "Planta 2", Status: HseqClosed},
		{Type: "incidente_ambiental", Area: "Planta 1", Status: HseqOpen, Latitude: &lat, Longitude: &lng},
	}
	for i := range seed {
		require.NoError(t, db.CreateHseqReport(ctx, &seed[i]))
	}

	all, err := db.ListHseqReports(ctx, HseqFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	planta1Open, err := db.ListHseqReports(ctx, HseqFilter{Area: "Planta 1", Status: HseqOpen})
	require.NoError(t, err)
	assert.Len(t, planta1Open, 2)

	accidents, err := db.ListHseqReports(ctx, HseqFilter{Type: "accidente", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, accidents, 1)
}

func TestUpdateHseqStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h := &HseqReport{Type: "accidente"}
	require.NoError(t, db.CreateHseqReport(ctx, h))
	require.NoError(t, db.UpdateHseqStatus(ctx, h.ID, HseqClosed))

	got, err := db.GetHseqReport(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, HseqClosed, got.Status)

	assert.ErrorIs(t, db.UpdateHseqStatus(ctx, 999, HseqClosed), ErrNotFound)
}

func TestHseqSummarySince(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	seed := []HseqReport{
		{Type: "accidente", Area: "Planta 1", RiskLevel: risk.High, Status: HseqOpen, CreatedAt: now.Add(-2 * 24 * time.Hour)},
		{Type: "accidente", Area: "Planta 2", RiskLevel: risk.High, Status: HseqClosed, CreatedAt: now.Add(-5 * 24 * time.Hour)},
		{Type: "casi_accidente", Area: "Planta 1", RiskLevel: risk.Low, Status: HseqInProgress, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{Type: "accidente", Area: "Planta 1", RiskLevel: risk.High, Status: HseqOverdue, CreatedAt: now.Add(-29 * 24 * time.Hour)},
		// outside the 30 day window
		{Type: "accidente", Area: "Planta 3", RiskLevel: risk.High, Status: HseqOpen, CreatedAt: now.Add(-31 * 24 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, db.CreateHseqReport(ctx, &seed[i]))
	}

	s, err := db.HseqSummarySince(ctx, now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, []Count{{Key: "accidente", Count: 3}, {Key: "casi_accidente", Count: 1}}, s.ByType)
	assert.Equal(t, []Count{{Key: "Planta 1", Count: 3}, {Key: "Planta 2", Count: 1}}, s.ByArea)
	assert.Equal(t, []Count{{Key: "high", Count: 3}, {Key: "low", Count: 1}}, s.ByRisk)
	assert.Len(t, s.ByStatus, 4)

	require.Len(t, s.OpenHighRisk, 2)
	assert.Equal(t, HseqOverdue, s.OpenHighRisk[0].Status, "oldest first")
	assert.Equal(t, HseqOpen, s.OpenHighRisk[1].Status)
}

func TestHseqSummarySince_Empty(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	s, err := db.HseqSummarySince(context.Background(), now.Add(-30*24*time.Hour), now)
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.ByStatus)
	assert.NotNil(t, s.OpenHighRisk)
}
