package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"catalyst-trader/internal/errors"
	"catalyst-trader/internal/models"
)

// SQLiteStore implements LedgerStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed ledger store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		account_id TEXT PRIMARY KEY,
		balance REAL NOT NULL,
		starting_balance REAL NOT NULL,
		created_at DATETIME NOT NULL,
		last_trade_date DATETIME
	);

	CREATE TABLE IF NOT EXISTS positions (
		account_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		average_entry_price REAL NOT NULL,
		current_price REAL NOT NULL,
		total_cost REAL NOT NULL,
		current_value REAL NOT NULL,
		unrealized_pnl REAL NOT NULL,
		unrealized_pnl_pct REAL NOT NULL,
		catalyst_id TEXT,
		PRIMARY KEY (account_id, ticker),
		FOREIGN KEY (account_id) REFERENCES accounts(account_id)
	);

	CREATE TABLE IF NOT EXISTS option_positions (
		id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		strategy TEXT,
		legs TEXT NOT NULL,
		total_cost REAL NOT NULL,
		current_value REAL NOT NULL,
		unrealized_pnl REAL NOT NULL,
		PRIMARY KEY (account_id, id),
		FOREIGN KEY (account_id) REFERENCES accounts(account_id)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		side TEXT NOT NULL,
		instrument TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		executed_price REAL NOT NULL,
		executed_at DATETIME NOT NULL,
		total_value REAL NOT NULL,
		realized_pnl REAL,
		realized_pct REAL,
		strategy TEXT,
		PRIMARY KEY (account_id, id),
		FOREIGN KEY (account_id) REFERENCES accounts(account_id)
	);
	CREATE INDEX IF NOT EXISTS idx_trades_account_seq ON trades(account_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveLedger replaces the stored snapshot for the state's account in one
// transaction.
func (s *SQLiteStore) SaveLedger(ctx context.Context, state models.LedgerState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStoreError("save", "ledger", err)
	}
	defer tx.Rollback()

	accountID := state.Account.AccountID
	for _, table := range []string{"positions", "option_positions", "trades"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE account_id = ?", table), accountID); err != nil {
			return errors.NewStoreError("save", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (account_id, balance, starting_balance, created_at, last_trade_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			balance = excluded.balance,
			last_trade_date = excluded.last_trade_date`,
		accountID, state.Account.Balance, state.Account.StartingBalance,
		state.Account.CreatedAt, nullableTime(state.Account.LastTradeDate))
	if err != nil {
		return errors.NewStoreError("save", "account", err)
	}

	for _, pos := range state.Positions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO positions (account_id, ticker, quantity, average_entry_price,
				current_price, total_cost, current_value, unrealized_pnl, unrealized_pnl_pct, catalyst_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			accountID, pos.Ticker, pos.Quantity, pos.AverageEntryPrice,
			pos.CurrentPrice, pos.TotalCost, pos.CurrentValue,
			pos.UnrealizedPnL, pos.UnrealizedPnLPct, pos.CatalystID)
		if err != nil {
			return errors.NewStoreError("save", "position "+pos.Ticker, err)
		}
	}

	for _, pos := range state.OptionPositions {
		legs, err := json.Marshal(pos.Legs)
		if err != nil {
			return errors.NewStoreError("save", "option legs "+pos.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO option_positions (id, account_id, ticker, strategy, legs,
				total_cost, current_value, unrealized_pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			pos.ID, accountID, pos.Ticker, pos.Strategy, string(legs),
			pos.TotalCost, pos.CurrentValue, pos.UnrealizedPnL)
		if err != nil {
			return errors.NewStoreError("save", "option position "+pos.ID, err)
		}
	}

	for seq, trade := range state.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades (id, account_id, seq, ticker, side, instrument,
				quantity, executed_price, executed_at, total_value, realized_pnl, realized_pct, strategy)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trade.ID, accountID, seq, trade.Ticker, string(trade.Side), string(trade.Instrument),
			trade.Quantity, trade.ExecutedPrice, trade.ExecutedAt, trade.TotalValue,
			nullableFloat(trade.RealizedPnL), nullableFloat(trade.RealizedPct), trade.Strategy)
		if err != nil {
			return errors.NewStoreError("save", "trade "+trade.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStoreError("save", "ledger", err)
	}
	return nil
}

// LoadLedger restores the full snapshot for an account.
func (s *SQLiteStore) LoadLedger(ctx context.Context, accountID string) (models.LedgerState, error) {
	state := models.LedgerState{
		Positions:       make(map[string]models.Position),
		OptionPositions: make(map[string]models.OptionPosition),
	}

	var lastTrade sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, balance, starting_balance, created_at, last_trade_date
		FROM accounts WHERE account_id = ?`, accountID).
		Scan(&state.Account.AccountID, &state.Account.Balance,
			&state.Account.StartingBalance, &state.Account.CreatedAt, &lastTrade)
	if err == sql.ErrNoRows {
		return state, errors.Wrapf(errors.ErrAccountNotFound, "account %s", accountID)
	}
	if err != nil {
		return state, errors.NewStoreError("load", "account", err)
	}
	if lastTrade.Valid {
		state.Account.LastTradeDate = lastTrade.Time
	}

	if err := s.loadPositions(ctx, accountID, &state); err != nil {
		return state, err
	}
	if err := s.loadOptionPositions(ctx, accountID, &state); err != nil {
		return state, err
	}
	if err := s.loadTrades(ctx, accountID, &state); err != nil {
		return state, err
	}
	return state, nil
}

func (s *SQLiteStore) loadPositions(ctx context.Context, accountID string, state *models.LedgerState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, quantity, average_entry_price, current_price, total_cost,
			current_value, unrealized_pnl, unrealized_pnl_pct, catalyst_id
		FROM positions WHERE account_id = ?`, accountID)
	if err != nil {
		return errors.NewStoreError("load", "positions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos models.Position
		var catalystID sql.NullString
		if err := rows.Scan(&pos.Ticker, &pos.Quantity, &pos.AverageEntryPrice,
			&pos.CurrentPrice, &pos.TotalCost, &pos.CurrentValue,
			&pos.UnrealizedPnL, &pos.UnrealizedPnLPct, &catalystID); err != nil {
			return errors.NewStoreError("load", "positions", err)
		}
		pos.CatalystID = catalystID.String
		state.Positions[pos.Ticker] = pos
	}
	return rows.Err()
}

func (s *SQLiteStore) loadOptionPositions(ctx context.Context, accountID string, state *models.LedgerState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, strategy, legs, total_cost, current_value, unrealized_pnl
		FROM option_positions WHERE account_id = ?`, accountID)
	if err != nil {
		return errors.NewStoreError("load", "option_positions", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos models.OptionPosition
		var legs string
		if err := rows.Scan(&pos.ID, &pos.Ticker, &pos.Strategy, &legs,
			&pos.TotalCost, &pos.CurrentValue, &pos.UnrealizedPnL); err != nil {
			return errors.NewStoreError("load", "option_positions", err)
		}
		if err := json.Unmarshal([]byte(legs), &pos.Legs); err != nil {
			return errors.NewStoreError("load", "option legs "+pos.ID, err)
		}
		state.OptionPositions[pos.ID] = pos
	}
	return rows.Err()
}

func (s *SQLiteStore) loadTrades(ctx context.Context, accountID string, state *models.LedgerState) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, side, instrument, quantity, executed_price, executed_at,
			total_value, realized_pnl, realized_pct, strategy
		FROM trades WHERE account_id = ? ORDER BY seq ASC`, accountID)
	if err != nil {
		return errors.NewStoreError("load", "trades", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trade models.Trade
		var pnl, pct sql.NullFloat64
		var strategy sql.NullString
		if err := rows.Scan(&trade.ID, &trade.Ticker, &trade.Side, &trade.Instrument,
			&trade.Quantity, &trade.ExecutedPrice, &trade.ExecutedAt,
			&trade.TotalValue, &pnl, &pct, &strategy); err != nil {
			return errors.NewStoreError("load", "trades", err)
		}
		if pnl.Valid {
			v := pnl.Float64
			trade.RealizedPnL = &v
		}
		if pct.Valid {
			v := pct.Float64
			trade.RealizedPct = &v
		}
		trade.Strategy = strategy.String
		state.Trades = append(state.Trades, trade)
	}
	return rows.Err()
}

// Accounts lists stored account ids.
func (s *SQLiteStore) Accounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, errors.NewStoreError("list", "accounts", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewStoreError("list", "accounts", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// Ensure SQLiteStore implements LedgerStore
var _ LedgerStore = (*SQLiteStore)(nil)
