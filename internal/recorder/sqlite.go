package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"DayHighDayLow/internal/model"
)

// SQLiteRecorder persists trades and day records to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			date           TEXT NOT NULL,
			opened_at      TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			option_type    TEXT NOT NULL,
			strike         INTEGER NOT NULL,
			entry_price    REAL NOT NULL,
			quantity       INTEGER NOT NULL,
			stop_loss      REAL NOT NULL,
			target         REAL NOT NULL,
			trailing_anchor REAL NOT NULL,
			status         TEXT NOT NULL DEFAULT 'OPEN',
			entry_reason   TEXT NOT NULL,
			order_id       TEXT DEFAULT '',
			exit_price     REAL DEFAULT 0,
			exit_spot      REAL DEFAULT 0,
			exit_reason    TEXT DEFAULT '',
			pnl            REAL DEFAULT 0,
			closed_at      TEXT DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date)`,

		`CREATE TABLE IF NOT EXISTS daily_levels (
			date      TEXT PRIMARY KEY,
			prev_high REAL NOT NULL,
			prev_low  REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS daily_summaries (
			date           TEXT PRIMARY KEY,
			prev_high      REAL,
			prev_low       REAL,
			total_trades   INTEGER,
			reentry_trades INTEGER,
			total_pnl      REAL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (r *SQLiteRecorder) SaveOpenPosition(pos *model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO trades
		(id, date, opened_at, symbol, option_type, strike, entry_price, quantity,
		 stop_loss, target, trailing_anchor, status, entry_reason, order_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		pos.ID, dateKey(pos.OpenedAt), pos.OpenedAt.Format(time.RFC3339),
		pos.Symbol, string(pos.OptionType), pos.Strike, pos.EntryPrice, pos.Quantity,
		pos.StopLoss, pos.Target, pos.TrailingAnchor, string(pos.Status),
		string(pos.EntryReason), pos.OrderID,
	)
	return err
}

func (r *SQLiteRecorder) SaveTrade(rec *model.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`UPDATE trades
		SET status = ?, trailing_anchor = ?, exit_price = ?, exit_spot = ?, exit_reason = ?, pnl = ?, closed_at = ?
		WHERE id = ?`,
		string(model.StatusClosed), rec.TrailingAnchor, rec.ExitPrice, rec.ExitSpot,
		string(rec.ExitReason), rec.PnL, rec.ClosedAt.Format(time.RFC3339), rec.ID,
	)
	return err
}

func (r *SQLiteRecorder) SaveDayLevels(date time.Time, lv model.Levels) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO daily_levels (date, prev_high, prev_low) VALUES (?,?,?)`,
		dateKey(date), lv.High, lv.Low)
	return err
}

func (r *SQLiteRecorder) SaveDailySummary(sum *model.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO daily_summaries
		(date, prev_high, prev_low, total_trades, reentry_trades, total_pnl)
		VALUES (?,?,?,?,?,?)`,
		dateKey(sum.Date), sum.Levels.High, sum.Levels.Low,
		sum.TotalTrades, sum.ReentryTrades, sum.TotalPnL,
	)
	return err
}

func (r *SQLiteRecorder) LoadTradesToday() ([]model.Position, []model.TradeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, opened_at, symbol, option_type, strike, entry_price,
		quantity, stop_loss, target, trailing_anchor, status, entry_reason, order_id,
		exit_price, exit_spot, exit_reason, pnl, closed_at
		FROM trades WHERE date = ? ORDER BY opened_at`, dateKey(time.Now()))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var open []model.Position
	var closed []model.TradeRecord
	for rows.Next() {
		var pos model.Position
		var openedAt, closedAt, status, optionType, entryReason, exitReason string
		var exitPrice, exitSpot, pnl float64
		if err := rows.Scan(&pos.ID, &openedAt, &pos.Symbol, &optionType, &pos.Strike,
			&pos.EntryPrice, &pos.Quantity, &pos.StopLoss, &pos.Target, &pos.TrailingAnchor,
			&status, &entryReason, &pos.OrderID, &exitPrice, &exitSpot, &exitReason, &pnl, &closedAt); err != nil {
			return nil, nil, err
		}
		pos.OptionType = model.OptionType(optionType)
		pos.Status = model.PositionStatus(status)
		pos.EntryReason = model.SignalKind(entryReason)
		pos.OpenedAt, _ = time.Parse(time.RFC3339, openedAt)

		if pos.Status == model.StatusOpen {
			open = append(open, pos)
			continue
		}
		rec := model.TradeRecord{
			Position:   pos,
			ExitPrice:  exitPrice,
			ExitSpot:   exitSpot,
			ExitReason: model.ExitReason(exitReason),
			PnL:        pnl,
		}
		rec.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		closed = append(closed, rec)
	}
	return open, closed, rows.Err()
}

func (r *SQLiteRecorder) DailyPnL(date time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pnl sql.NullFloat64
	err := r.db.QueryRow(`SELECT SUM(pnl) FROM trades WHERE date = ? AND status = 'CLOSED'`,
		dateKey(date)).Scan(&pnl)
	if err != nil {
		return 0, err
	}
	return pnl.Float64, nil
}

func (r *SQLiteRecorder) CleanupOldData(keepDays int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := dateKey(time.Now().AddDate(0, 0, -keepDays))
	res, err := r.db.Exec(`DELETE FROM trades WHERE date < ?`, cutoff)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if _, err := r.db.Exec(`DELETE FROM daily_levels WHERE date < ?`, cutoff); err != nil {
		return err
	}
	r.log.Info().Int64("trades_deleted", n).Str("cutoff", cutoff).Msg("old data cleaned up")
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
