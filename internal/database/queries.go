package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jamesruggles/alertavecinal/internal/geo"
	"github.com/jamesruggles/alertavecinal/internal/risk"
)

const reportColumns = `id, report_type, description, latitude, longitude, image_path, risk_level,
	has_weapon, has_vehicle, plate_text, status, source, ai_raw_summary, ai_confidence, ai_outcome,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner, r *Report) error {
	return row.Scan(&r.ID, &r.ReportType, &r.Description, &r.Latitude, &r.Longitude, &r.ImagePath,
		&r.RiskLevel, &r.HasWeapon, &r.HasVehicle, &r.PlateText, &r.Status, &r.Source,
		&r.AISummary, &r.AIConfidence, &r.AIOutcome, &r.CreatedAt, &r.UpdatedAt)
}

func collectReports(rows *sql.Rows) ([]Report, error) {
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := scanReport(rows, &r); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func now() time.Time { return time.Now().UTC() }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReport(ctx context.Context, ex execer, r *Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.CreatedAt
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Source == "" {
		r.Source = SourceCitizen
	}
	if r.RiskLevel == "" {
		r.RiskLevel = risk.Low
	}

	res, err := ex.ExecContext(ctx,
		`INSERT INTO reports (report_type, description, latitude, longitude, image_path, risk_level,
			has_weapon, has_vehicle, plate_text, status, source, ai_raw_summary, ai_confidence, ai_outcome,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportType, r.Description, r.Latitude, r.Longitude, r.ImagePath, r.RiskLevel,
		r.HasWeapon, r.HasVehicle, r.PlateText, r.Status, r.Source, r.AISummary, r.AIConfidence, r.AIOutcome,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// --- Reports ---

func (db *DB) CreateReport(ctx context.Context, r *Report) error {
	return insertReport(ctx, db, r)
}

func (db *DB) GetReport(ctx context.Context, id int64) (*Report, error) {
	r := &Report{}
	err := scanReport(db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id), r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// ListReports returns reports newest first.
func (db *DB) ListReports(ctx context.Context, f ReportFilter) ([]Report, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.RiskLevel != "" {
		where = append(where, "risk_level = ?")
		args = append(args, f.RiskLevel)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}

	q := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return collectReports(rows)
}

// ListReportsInBox returns the reports inside b, in no particular order.
func (db *DB) ListReportsInBox(ctx context.Context, b geo.Box) ([]Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE latitude BETWEEN ? AND ?`
	args := []any{b.MinLat, b.MaxLat}
	if !b.WrapLng {
		q += ` AND longitude BETWEEN ? AND ?`
		args = append(args, b.MinLng, b.MaxLng)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports in box: %w", err)
	}
	return collectReports(rows)
}

// ListReportPoints returns the coordinates of every report, optionally
// restricted to one status.
func (db *DB) ListReportPoints(ctx context.Context, status string) ([]geo.Point, error) {
	q := `SELECT latitude, longitude FROM reports`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list report points: %w", err)
	}
	defer rows.Close()

	var points []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Lat, &p.Lng); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (db *DB) UpdateReportStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE reports SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Panic events ---

// CreatePanicReport stores the report and its panic event atomically. The
// event's ReportID and CreatedAt are taken from the inserted report.
func (db *DB) CreatePanicReport(ctx context.Context, r *Report, ev *PanicEvent) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertReport(ctx, tx, r); err != nil {
		return err
	}

	ev.ReportID = r.ID
	ev.CreatedAt = r.CreatedAt
	if ev.Mode == "" {
		ev.Mode = "normal"
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO panic_events (report_id, user_id, mode, under_duress, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ReportID, ev.UserID, ev.Mode, ev.UnderDuress, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert panic event: %w", err)
	}
	ev.ID, _ = res.LastInsertId()

	return tx.Commit()
}

func (db *DB) GetPanicEventByReport(ctx context.Context, reportID int64) (*PanicEvent, error) {
	ev := &PanicEvent{}
	err := db.QueryRowContext(ctx,
		`SELECT id, report_id, user_id, mode, under_duress, created_at FROM panic_events WHERE report_id = ?`, reportID,
	).Scan(&ev.ID, &ev.ReportID, &ev.UserID, &ev.Mode, &ev.UnderDuress, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get panic event: %w", err)
	}
	return ev, nil
}

// --- Track points ---

func (db *DB) AppendTrackPoint(ctx context.Context, p *TrackPoint) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE id = ?`, p.ReportID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check report: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.CreatedAt = p.CreatedAt.UTC()
	res, err := db.ExecContext(ctx,
		`INSERT INTO track_points (report_id, latitude, longitude, created_at) VALUES (?, ?, ?, ?)`,
		p.ReportID, p.Latitude, p.Longitude, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert track point: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

// ListTrackPoints returns a report's points in the order they were appended.
func (db *DB) ListTrackPoints(ctx context.Context, reportID int64) ([]TrackPoint, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, report_id, latitude, longitude, created_at FROM track_points WHERE report_id = ? ORDER BY id`, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list track points: %w", err)
	}
	defer rows.Close()

	var points []TrackPoint
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.ID, &p.ReportID, &p.Latitude, &p.Longitude, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// --- Stats ---

func (db *DB) GetStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		ByStatus: map[string]int{},
		ByRisk:   map[string]int{},
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM reports`, &stats.ReportCount},
		{`SELECT COUNT(*) FROM panic_events`, &stats.PanicCount},
		{`SELECT COUNT(*) FROM hseq_reports`, &stats.HseqCount},
	}
	for _, c := range counts {
		if err := db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	groups := []struct {
		column string
		dst    map[string]int
	}{
		{"status", stats.ByStatus},
		{"risk_level", stats.ByRisk},
	}
	for _, g := range groups {
		tally, err := db.countBy(ctx, "reports", g.column, "", nil)
		if err != nil {
			return nil, err
		}
		for _, c := range tally {
			g.dst[c.Key] = c.Count
		}
	}
	return stats, nil
}

// countBy tallies rows of table grouped by column. column and table are
// never user input.
func (db *DB) countBy(ctx context.Context, table, column, where string, args []any) ([]Count, error) {
	q := fmt.Sprintf(`SELECT COALESCE(%s, ''), COUNT(*) FROM %s`, column, table)
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` GROUP BY 1 ORDER BY 2 DESC, 1`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", table, column, err)
	}
	defer rows.Close()

	counts := []Count{}
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
