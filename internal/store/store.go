package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Anhbaza/Bot-Binance/internal/models"
	"github.com/Anhbaza/Bot-Binance/pkg/db"
)

// Store пишет сигналы, сделки и статистику в Postgres.
// Память — источник истины во время работы, база нужна для
// восстановления открытых позиций после рестарта и для истории.
type Store struct {
	tx db.TxManager
}

func New(tx db.TxManager) *Store {
	return &Store{tx: tx}
}

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id           BIGSERIAL PRIMARY KEY,
	symbol       TEXT             NOT NULL,
	timeframe    TEXT             NOT NULL,
	direction    TEXT             NOT NULL,
	entry_price  DOUBLE PRECISION NOT NULL,
	take_profit  DOUBLE PRECISION NOT NULL,
	stop_loss    DOUBLE PRECISION NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	rsi          DOUBLE PRECISION NOT NULL,
	volume_ratio DOUBLE PRECISION NOT NULL,
	generated_at TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id             TEXT PRIMARY KEY,
	symbol         TEXT             NOT NULL,
	direction      TEXT             NOT NULL,
	entry_price    DOUBLE PRECISION NOT NULL,
	quantity       DOUBLE PRECISION NOT NULL,
	stop_loss      DOUBLE PRECISION NOT NULL,
	take_profit    DOUBLE PRECISION NOT NULL,
	status         TEXT             NOT NULL,
	order_id       TEXT             NOT NULL DEFAULT '',
	bracket_id     TEXT             NOT NULL DEFAULT '',
	opened_at      TIMESTAMPTZ      NOT NULL,
	closed_at      TIMESTAMPTZ,
	exit_price     DOUBLE PRECISION NOT NULL DEFAULT 0,
	realized_pnl   DOUBLE PRECISION NOT NULL DEFAULT 0,
	close_reason   TEXT             NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS trades_status_idx ON trades (status);

CREATE TABLE IF NOT EXISTS statistics (
	id            BIGSERIAL PRIMARY KEY,
	total_trades  INT              NOT NULL,
	wins          INT              NOT NULL,
	losses        INT              NOT NULL,
	win_rate      DOUBLE PRECISION NOT NULL,
	total_pnl     DOUBLE PRECISION NOT NULL,
	avg_win       DOUBLE PRECISION NOT NULL,
	avg_loss      DOUBLE PRECISION NOT NULL,
	max_drawdown  DOUBLE PRECISION NOT NULL,
	sharpe        DOUBLE PRECISION NOT NULL,
	profit_factor DOUBLE PRECISION NOT NULL,
	recorded_at   TIMESTAMPTZ      NOT NULL
);
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, schema)
		return errors.Wrap(err, "ensure schema")
	})
}

func (s *Store) SaveSignal(ctx context.Context, sig models.Signal) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO signals (symbol, timeframe, direction, entry_price, take_profit,
				stop_loss, confidence, rsi, volume_ratio, generated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			sig.Symbol, sig.Timeframe, string(sig.Direction), sig.EntryPrice, sig.TakeProfit,
			sig.StopLoss, sig.Confidence, sig.RSI, sig.VolumeRatio, sig.GeneratedAt,
		)
		return errors.Wrap(err, "save signal")
	})
}

func (s *Store) SaveTrade(ctx context.Context, t models.Trade) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trades (id, symbol, direction, entry_price, quantity, stop_loss,
				take_profit, status, order_id, bracket_id, opened_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			t.ID, t.Symbol, string(t.Direction), t.EntryPrice, t.Quantity, t.StopLoss,
			t.TakeProfit, string(t.Status), t.OrderID, t.BracketID, t.OpenedAt,
		)
		return errors.Wrap(err, "save trade")
	})
}

// UpdateTrade перезаписывает изменяемые поля по ID.
func (s *Store) UpdateTrade(ctx context.Context, t models.Trade) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		var closedAt any
		if !t.ClosedAt.IsZero() {
			closedAt = t.ClosedAt
		}
		_, err := tx.Exec(ctxTx, `
			UPDATE trades
			SET status = $2, closed_at = $3, exit_price = $4, realized_pnl = $5, close_reason = $6
			WHERE id = $1`,
			t.ID, string(t.Status), closedAt, t.ExitPrice, t.RealizedPnL, string(t.CloseReason),
		)
		return errors.Wrap(err, "update trade")
	})
}

// LoadOpenTrades возвращает позиции со статусом OPEN для восстановления
// после рестарта.
func (s *Store) LoadOpenTrades(ctx context.Context) ([]models.Trade, error) {
	var out []models.Trade
	err := s.tx.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		rows, err := tx.Query(ctxTx, `
			SELECT id, symbol, direction, entry_price, quantity, stop_loss,
				take_profit, order_id, bracket_id, opened_at
			FROM trades
			WHERE status = $1
			ORDER BY opened_at`, string(models.TradeOpen))
		if err != nil {
			return errors.Wrap(err, "query open trades")
		}
		defer rows.Close()

		for rows.Next() {
			var t models.Trade
			var dir string
			if err := rows.Scan(&t.ID, &t.Symbol, &dir, &t.EntryPrice, &t.Quantity,
				&t.StopLoss, &t.TakeProfit, &t.OrderID, &t.BracketID, &t.OpenedAt); err != nil {
				return errors.Wrap(err, "scan trade")
			}
			t.Direction = models.Direction(dir)
			t.Status = models.TradeOpen
			out = append(out, t)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) SaveStatistics(ctx context.Context, st models.Stats) error {
	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO statistics (total_trades, wins, losses, win_rate, total_pnl,
				avg_win, avg_loss, max_drawdown, sharpe, profit_factor, recorded_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			st.TotalTrades, st.Wins, st.Losses, st.WinRate, st.TotalPnL,
			st.AvgWin, st.AvgLoss, st.MaxDrawdown, st.Sharpe, st.ProfitFactor, time.Now().UTC(),
		)
		return errors.Wrap(err, "save statistics")
	})
}
