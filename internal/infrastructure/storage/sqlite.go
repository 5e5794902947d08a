package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vitos/token_swap_level/internal/domain"
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			address TEXT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			ticker TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 0,
			price_levels TEXT NOT NULL,
			next_buy REAL,
			next_sell REAL,
			swap_amount REAL NOT NULL,
			algo_type TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_ticker ON tokens(ticker);`,
		`CREATE TABLE IF NOT EXISTS swaps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token_address TEXT NOT NULL,
			ticker TEXT NOT NULL,
			direction INTEGER NOT NULL,
			amount REAL NOT NULL,
			price REAL NOT NULL,
			success BOOLEAN NOT NULL,
			tx_hash TEXT,
			gas_cost TEXT,
			error TEXT,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

const tokenColumns = `address, id, ticker, is_active, price_levels, next_buy, next_sell, swap_amount, algo_type, created_at, updated_at`

// TokenRepository implementation

func (s *SQLiteStore) SaveToken(ctx context.Context, t *domain.Token) error {
	return s.insertToken(ctx, s.db, t)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteStore) insertToken(ctx context.Context, db execer, t *domain.Token) error {
	levels, err := json.Marshal(t.PriceLevels)
	if err != nil {
		return err
	}
	query := `INSERT INTO tokens (` + tokenColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, query,
		t.Address, t.ID, t.Ticker, t.IsActive, string(levels),
		nullFloat(t.NextBuy), nullFloat(t.NextSell),
		t.SwapAmount, string(t.AlgoType), t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetToken(ctx context.Context, address string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE address = ? COLLATE NOCASE`
	return scanToken(s.db.QueryRowContext(ctx, query, address))
}

func (s *SQLiteStore) GetTokenByTicker(ctx context.Context, ticker string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE ticker = ? COLLATE NOCASE`
	return scanToken(s.db.QueryRowContext(ctx, query, ticker))
}

func (s *SQLiteStore) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY created_at`
	return s.queryTokens(ctx, query)
}

func (s *SQLiteStore) ListActiveTokens(ctx context.Context) ([]*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE is_active = 1 ORDER BY created_at`
	return s.queryTokens(ctx, query)
}

func (s *SQLiteStore) queryTokens(ctx context.Context, query string, args ...interface{}) ([]*domain.Token, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (s *SQLiteStore) UpdateToken(ctx context.Context, t *domain.Token) error {
	levels, err := json.Marshal(t.PriceLevels)
	if err != nil {
		return err
	}
	query := `UPDATE tokens SET id = ?, ticker = ?, is_active = ?, price_levels = ?,
			  next_buy = ?, next_sell = ?, swap_amount = ?, algo_type = ?, updated_at = ?
			  WHERE address = ? COLLATE NOCASE`
	res, err := s.db.ExecContext(ctx, query,
		t.ID, t.Ticker, t.IsActive, string(levels),
		nullFloat(t.NextBuy), nullFloat(t.NextSell),
		t.SwapAmount, string(t.AlgoType), t.UpdatedAt, t.Address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, address string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE address = ? COLLATE NOCASE`, address)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// ReplaceTokens swaps the whole registry in one transaction.
func (s *SQLiteStore) ReplaceTokens(ctx context.Context, tokens []*domain.Token) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens`); err != nil {
		return err
	}
	for _, t := range tokens {
		if err := s.insertToken(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SwapRepository implementation

func (s *SQLiteStore) SaveSwap(ctx context.Context, rec *domain.SwapRecord) error {
	query := `INSERT INTO swaps (token_address, ticker, direction, amount, price, success, tx_hash, gas_cost, error, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.TokenAddress, rec.Ticker, int(rec.Direction), rec.Amount, rec.Price,
		rec.Success, rec.TxHash, rec.GasCost, rec.Error, rec.CreatedAt)
	return err
}

func (s *SQLiteStore) ListSwaps(ctx context.Context, limit int) ([]*domain.SwapRecord, error) {
	query := `SELECT id, token_address, ticker, direction, amount, price, success, tx_hash, gas_cost, error, created_at
			  FROM swaps ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.SwapRecord
	for rows.Next() {
		var r domain.SwapRecord
		var dir int
		if err := rows.Scan(&r.ID, &r.TokenAddress, &r.Ticker, &dir, &r.Amount, &r.Price,
			&r.Success, &r.TxHash, &r.GasCost, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Direction = domain.Direction(dir)
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanToken(row rowScanner) (*domain.Token, error) {
	var (
		t        domain.Token
		levels   string
		nextBuy  sql.NullFloat64
		nextSell sql.NullFloat64
		algo     string
	)
	err := row.Scan(&t.Address, &t.ID, &t.Ticker, &t.IsActive, &levels,
		&nextBuy, &nextSell, &t.SwapAmount, &algo, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(levels), &t.PriceLevels); err != nil {
		return nil, fmt.Errorf("corrupt price_levels for %s: %w", t.Address, err)
	}
	t.AlgoType = domain.AlgoType(algo)
	if nextBuy.Valid {
		t.NextBuy = &nextBuy.Float64
	}
	if nextSell.Valid {
		t.NextSell = &nextSell.Float64
	}
	return &t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
