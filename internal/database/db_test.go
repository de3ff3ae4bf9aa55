package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesruggles/alertavecinal/internal/geo"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func TestWithTimeFormat(t *testing.T) {
	assert.Equal(t, "a.db?_time_format=sqlite", withTimeFormat("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_time_format=sqlite", withTimeFormat("file:a.db?mode=rwc"))
	assert.Equal(t, "a.db?_time_format=custom", withTimeFormat("a.db?_time_format=custom"))
}

func TestNew_CheckAndMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Check(context.Background()))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err, "schema must be idempotent")
	require.NoError(t, db.Close())
}

func TestCreateAndGetReport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &Report{
		ReportType:   "robo",
		Description:  "me robaron la bici",
		Latitude:     -34.6,
		Longitude:    -58.4,
		ImagePath:    strPtr("/api/uploads/a.jpg"),
		RiskLevel:    risk.Medium,
		HasVehicle:   true,
		PlateText:    strPtr("AB123CD"),
		AISummary:    "summary",
		AIConfidence: 0.65,
		AIOutcome:    "ok",
	}
	require.NoError(t, db.CreateReport(ctx, r))
	require.NotZero(t, r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, SourceCitizen, r.Source)

	got, err := db.GetReport(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "robo", got.ReportType)
	assert.Equal(t, risk.Medium, got.RiskLevel)
	assert.True(t, got.HasVehicle)
	assert.False(t, got.HasWeapon)
	require.NotNil(t, got.PlateText)
	assert.Equal(t, "AB123CD", *got.PlateText)
	require.NotNil(t, got.ImagePath)
	assert.Equal(t, "summary", got.AISummary)
	assert.InDelta(t, 0.65, got.AIConfidence, 1e-9)
	assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Millisecond)

	missing, err := db.GetReport(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateReport_NullableColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &Report{ReportType: "emergency", Latitude: 1, Longitude: 2}
	require.NoError(t, db.CreateReport(ctx, r))

	got, err := db.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ImagePath)
	assert.Nil(t, got.PlateText)
	assert.Equal(t, risk.Low, got.RiskLevel)
}

func TestListReports_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i, st := range []string{StatusPending, StatusVerified, StatusPending, StatusFalse} {
		r := &Report{
			ReportType: "x",
			Latitude:   float64(i),
			Longitude:  float64(i),
			Status:     st,
			RiskLevel:  risk.Low,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if i == 3 {
			r.Source = SourcePanic
			r.RiskLevel = risk.High
		}
		require.NoError(t, db.CreateReport(ctx, r))
	}

	all, err := db.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.True(t, !all[i].CreatedAt.After(all[i-1].CreatedAt), "newest first")
	}

	pending, err := db.ListReports(ctx, ReportFilter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := db.ListReports(ctx, ReportFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, StatusFalse, limited[0].Status)

	panics, err := db.ListReports(ctx, ReportFilter{Source: SourcePanic, RiskLevel: risk.High})
	require.NoError(t, err)
	assert.Len(t, panics, 1)
}

func TestListReportsInBox(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	near := &Report{ReportType: "a", Latitude: -34.6037, Longitude: -58.3816}
	far := &Report{ReportType: "b", Latitude: -31.4, Longitude: -64.2}
	require.NoError(t, db.CreateReport(ctx, near))
	require.NoError(t, db.CreateReport(ctx, far))

	got, err := db.ListReportsInBox(ctx, geo.BoundingBox(-34.6, -58.38, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ID)

	wrapped, err := db.ListReportsInBox(ctx, geo.Box{MinLat: -40, MaxLat: -30, WrapLng: true})
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)
}

func TestListReportPoints(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateReport(ctx, &Report{ReportType: "a", Latitude: 1, Longitude: 2}))
	require.NoError(t, db.CreateReport(ctx, &Report{ReportType: "b", Latitude: 3, Longitude: 4, Status: StatusVerified}))

	all, err := db.ListReportPoints(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []geo.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}, all)

	verified, err := db.ListReportPoints(ctx, StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, []geo.Point{{Lat: 3, Lng: 4}}, verified)
}

func TestUpdateReportStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &Report{ReportType: "a", Latitude: 1, Longitude: 1}
	require.NoError(t, db.CreateReport(ctx, r))

	require.NoError(t, db.UpdateReportStatus(ctx, r.ID, StatusVerified))
	got, err := db.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, got.Status)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	assert.ErrorIs(t, db.UpdateReportStatus(ctx, 404, StatusVerified), ErrNotFound)
}

func TestCreatePanicReport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	uid := int64(42)
	r := &Report{ReportType: "panic", Latitude: 1, Longitude: 1, RiskLevel: risk.High, Source: SourcePanic}
	ev := &PanicEvent{UserID: &uid, Mode: "silent", UnderDuress: true}
	require.NoError(t, db.CreatePanicReport(ctx, r, ev))

	assert.NotZero(t, ev.ID)
	assert.Equal(t, r.ID, ev.ReportID)
	assert.True(t, ev.CreatedAt.Equal(r.CreatedAt))

	got, err := db.GetPanicEventByReport(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.UserID)
	assert.Equal(t, int64(42), *got.UserID)
	assert.Equal(t, "silent", got.Mode)
	assert.True(t, got.UnderDuress)

	none, err := db.GetPanicEventByReport(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreatePanicReport_DefaultsAndAnonymous(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &Report{ReportType: "panic", Latitude: 1, Longitude: 1}
	ev := &PanicEvent{}
	require.NoError(t, db.CreatePanicReport(ctx, r, ev))

	got, err := db.GetPanicEventByReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.UserID)
	assert.Equal(t, "normal", got.Mode)
}

func TestTrackPoints(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := &Report{ReportType: "panic", Latitude: 1, Longitude: 1}
	require.NoError(t, db.CreateReport(ctx, r))

	coords := [][2]float64{{1.001, 1.001}, {1.002, 1.003}, {1.004, 1.006}}
	for _, c := range coords {
		require.NoError(t, db.AppendTrackPoint(ctx, &TrackPoint{ReportID: r.ID, Latitude: c[0], Longitude: c[1]}))
	}

	points, err := db.ListTrackPoints(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i, c := range coords {
		assert.Equal(t, c[0], points[i].Latitude)
		assert.Equal(t, c[1], points[i].Longitude)
	}

	err = db.AppendTrackPoint(ctx, &TrackPoint{ReportID: 777, Latitude: 0, Longitude: 0})
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := db.ListTrackPoints(ctx, 777)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateReport(ctx, &Report{ReportType: "a", Latitude: 1, Longitude: 1, RiskLevel: risk.High}))
	require.NoError(t, db.CreateReport(ctx, &Report{ReportType: "b", Latitude: 1, Longitude: 1, Status: StatusVerified}))
	require.NoError(t, db.CreatePanicReport(ctx, &Report{ReportType: "panic", Latitude: 1, Longitude: 1, RiskLevel: risk.High}, &PanicEvent{}))
	require.NoError(t, db.CreateHseqReport(ctx, &HseqReport{Type: "accidente"}))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ReportCount)
	assert.Equal(t, 1, stats.PanicCount)
	assert.Equal(t, 1, stats.HseqCount)
	assert.Equal(t, 2, stats.ByStatus[StatusPending])
	assert.Equal(t, 1, stats.ByStatus[StatusVerified])
	assert.Equal(t, 2, stats.ByRisk["high"])
	assert.Equal(t, 1, stats.ByRisk["low"])
}
