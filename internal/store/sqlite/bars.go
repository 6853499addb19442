package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stockdash/internal/model"
)

// SaveBars replaces the cached bars for code/period in a single transaction.
func (s *Store) SaveBars(ctx context.Context, code, period string, bars []model.PriceBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bars WHERE code = ? AND period = ?`, code, period); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite clear bars: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (code, period, seq, date, open, high, low, close, volume, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, b := range bars {
		_, err := stmt.ExecContext(ctx, code, period, i, b.Date, b.Open, b.High, b.Low, b.Close, nullable(b.Volume), nullable(b.Amount))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bars_fetched (code, period, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(code, period) DO UPDATE SET fetched_at = excluded.fetched_at
	`, code, period, s.now().Unix())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite mark fetched: %w", err)
	}

	return tx.Commit()
}

// LoadBars returns cached bars ordered chronologically, or nil when the
// cache is empty or older than the TTL.
func (s *Store) LoadBars(ctx context.Context, code, period string) ([]model.PriceBar, error) {
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM bars_fetched WHERE code = ? AND period = ?`, code, period,
	).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite read fetched_at: %w", err)
	}
	if s.now().Sub(time.Unix(fetchedAt, 0)) > s.barTTL {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume, amount
		FROM bars
		WHERE code = ? AND period = ?
		ORDER BY seq ASC
	`, code, period)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.PriceBar
	for rows.Next() {
		var (
			b              model.PriceBar
			volume, amount sql.NullFloat64
		)
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &volume, &amount); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		if volume.Valid {
			b.Volume = &volume.Float64
		}
		if amount.Valid {
			b.Amount = &amount.Float64
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func nullable(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
