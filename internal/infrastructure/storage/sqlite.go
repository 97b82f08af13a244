package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/paepae/kucoin-lendingbot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS lending_status (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account TEXT NOT NULL,
			currency TEXT NOT NULL,
			total_balance TEXT NOT NULL,
			available_balance TEXT NOT NULL,
			utilization_pct TEXT NOT NULL,
			average_daily_rate TEXT NOT NULL,
			effective_daily_rate TEXT NOT NULL,
			unrealized_accrued_interest TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lending_status_account ON lending_status(account, id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveStatus(ctx context.Context, status *domain.LendingStatus) error {
	query := `INSERT INTO lending_status (account, currency, total_balance, available_balance, utilization_pct, average_daily_rate, effective_daily_rate, unrealized_accrued_interest, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		status.Account, status.Currency,
		status.TotalBalance.String(), status.AvailableBalance.String(),
		status.UtilizationPct.String(), status.AverageDailyRate.String(),
		status.EffectiveDailyRate.String(), status.UnrealizedAccruedInterest.String(),
		status.CreatedAt)
	return err
}

func (s *SQLiteStore) ListStatus(ctx context.Context, account string, limit int) ([]*domain.LendingStatus, error) {
	query := `SELECT id, account, currency, total_balance, available_balance, utilization_pct, average_daily_rate, effective_daily_rate, unrealized_accrued_interest, created_at
			  FROM lending_status WHERE account = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []*domain.LendingStatus
	for rows.Next() {
		st := &domain.LendingStatus{}
		if err := rows.Scan(&st.ID, &st.Account, &st.Currency,
			&st.TotalBalance, &st.AvailableBalance, &st.UtilizationPct,
			&st.AverageDailyRate, &st.EffectiveDailyRate,
			&st.UnrealizedAccruedInterest, &st.CreatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
