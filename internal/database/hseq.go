package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jamesruggles/alertavecinal/internal/risk"
)

const hseqColumns = `id, type, area, shift, description, latitude, longitude, image_path,
	risk_level, status, created_at, updated_at`

func scanHseq(row rowScanner, h *HseqReport) error {
	return row.Scan(&h.ID, &h.Type, &h.Area, &h.Shift, &h.Description, &h.Latitude, &h.Longitude,
		&h.ImagePath, &h.RiskLevel, &h.Status, &h.CreatedAt, &h.UpdatedAt)
}

func collectHseq(rows *sql.Rows) ([]HseqReport, error) {
	defer rows.Close()

	var out []HseqReport
	for rows.Next() {
		var h HseqReport
		if err := scanHseq(rows, &h); err != nil {
			return nil, fmt.Errorf("scan hseq report: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (db *DB) CreateHseqReport(ctx context.Context, h *HseqReport) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}
	h.CreatedAt = h.CreatedAt.UTC()
	h.UpdatedAt = h.CreatedAt
	if h.RiskLevel == "" {
		h.RiskLevel = risk.Medium
	}
	if h.Status == "" {
		h.Status = HseqOpen
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO hseq_reports (type, area, shift, description, latitude, longitude, image_path,
			risk_level, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Type, h.Area, h.Shift, h.Description, h.Latitude, h.Longitude, h.ImagePath,
		h.RiskLevel, h.Status, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert hseq report: %w", err)
	}
	h.ID, _ = res.LastInsertId()
	return nil
}

func (db *DB) GetHseqReport(ctx context.Context, id int64) (*HseqReport, error) {
	h := &HseqReport{}
	err := scanHseq(db.QueryRowContext(ctx, `SELECT `+hseqColumns+` FROM hseq_reports WHERE id = ?`, id), h)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hseq report: %w", err)
	}
	return h, nil
}

func (db *DB) ListHseqReports(ctx context.Context, f HseqFilter) ([]HseqReport, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Area != "" {
		where = append(where, "area = ?")
		args = append(args, f.Area)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}

	q := `SELECT ` + hseqColumns + ` FROM hseq_reports`
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
		return nil, fmt.Errorf("list hseq reports: %w", err)
	}
	return collectHseq(rows)
}

func (db *DB) UpdateHseqStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE hseq_reports SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		return fmt.Errorf("update hseq status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HseqSummarySince aggregates incidents created in [since, until].
func (db *DB) HseqSummarySince(ctx context.Context, since, until time.Time) (*HseqSummary, error) {
	since, until = since.UTC(), until.UTC()
	s := &HseqSummary{Since: since, Until: until}

	window := `created_at >= ? AND created_at <= ?`
	args := []any{since, until}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hseq_reports WHERE `+window, args...).Scan(&s.Total); err != nil {
		return nil, fmt.Errorf("count hseq reports: %w", err)
	}

	groups := []struct {
		column string
		dst    *[]Count
	}{
		{"status", &s.ByStatus},
		{"risk_level", &s.ByRisk},
		{"type", &s.ByType},
		{"area", &s.ByArea},
	}
	for _, g := range groups {
		counts, err := db.countBy(ctx, "hseq_reports", g.column, window, args)
		if err != nil {
			return nil, err
		}
		*g.dst = counts
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+hseqColumns+` FROM hseq_reports
		 WHERE `+window+` AND risk_level = ? AND status IN (?, ?, ?)
		 ORDER BY created_at ASC, id ASC`,
		since, until, risk.High, HseqOpen, HseqInProgress, HseqOverdue,
	)
	if err != nil {
		return nil, fmt.Errorf("list open high risk: %w", err)
	}
	open, err := collectHseq(rows)
	if err != nil {
		return nil, err
	}
	if open == nil {
		open = []HseqReport{}
	}
	s.OpenHighRisk = open

	return s, nil
}
