package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TrendLens/internal/domain/models"
	domrepo "TrendLens/internal/domain/repository"
	pkgch "TrendLens/pkg/clickhouse"
	applogger "TrendLens/pkg/logger"
)

// BarsSchema creates the daily bar table read by CHBarStore.
const BarsSchema = `
CREATE TABLE IF NOT EXISTS %s (
    symbol LowCardinality(String),
    date   Date,
    open   Float64,
    high   Float64,
    low    Float64,
    close  Float64,
    volume Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, date)`

// CHBarStore implements MarketDataSource over a ClickHouse table of daily bars.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string) *CHBarStore {
	return &CHBarStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the DDL for the configured table.
func (s *CHBarStore) Schema() []string {
	return []string{fmt.Sprintf(BarsSchema, s.table)}
}

// historyQuery renders the bar select for the given bounds; zero bounds are left open.
func historyQuery(table string, from, to time.Time) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT date, open, high, low, close, volume FROM %s FINAL WHERE symbol = ?", table)
	args := []interface{}{""}
	if !from.IsZero() {
		b.WriteString(" AND date >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		b.WriteString(" AND date <= ?")
		args = append(args, to.UTC())
	}
	b.WriteString(" ORDER BY date ASC")
	return b.String(), args
}

func (s *CHBarStore) History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	start := time.Now()
	q, args := historyQuery(s.table, from, to)
	args[0] = ticker

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, 4096)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		d := b.Date.UTC()
		b.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse history ok",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Metadata derives the identifying fields from the stored bars. A ticker with no rows yields empty metadata.
func (s *CHBarStore) Metadata(ctx context.Context, ticker string) (models.TickerMeta, error) {
	q := fmt.Sprintf("SELECT close FROM %s FINAL WHERE symbol = ? ORDER BY date DESC LIMIT 1", s.table)
	var last float64
	err := s.db.QueryRowContext(ctx, q, ticker).Scan(&last)
	if err == sql.ErrNoRows {
		return models.TickerMeta{}, nil
	}
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse metadata query error",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return metaFromClose(ticker, last), nil
}

// metaFromClose synthesizes the identifying fields from the stored bars; the table has no metadata columns,
// so any symbol with rows validates.
func metaFromClose(ticker string, last float64) models.TickerMeta {
	return models.TickerMeta{
		"symbol":                     ticker,
		"underlyingSymbol":           ticker,
		"previousClose":              last,
		"regularMarketPreviousClose": last,
	}
}

var _ domrepo.MarketDataSource = (*CHBarStore)(nil)
