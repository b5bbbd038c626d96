package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/fx"
)

// Dialects supported by SQLRepository.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const timeLayout = time.RFC3339

// SQLRepository implements SnapshotStore on a relational database. Queries
// are written with $n placeholders and rebound for SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect string
}

// NewSQLRepository returns a repository over db speaking dialect.
func NewSQLRepository(db *sql.DB, dialect string) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Dialect returns the SQL dialect in use.
func (r *SQLRepository) Dialect() string { return r.dialect }

// Ping checks the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadPositions returns the positions stored as the closing portfolio of
// the previous year.
func (r *SQLRepository) LoadPositions(ctx context.Context, year int) (map[string]models.Position, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT symbol, quantity, total_cost, open_date FROM positions WHERE year = $1`), year-1)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[string]models.Position{}
	for rows.Next() {
		var (
			sym    string
			p      models.Position
			opened sql.NullString
		)
		if err := rows.Scan(&sym, &p.Quantity, &p.TotalCost, &opened); err != nil {
			return nil, err
		}
		if p.Quantity != 0 {
			p.AverageCost = p.TotalCost / p.Quantity
		}
		if p.OpenDate, err = parseTime(opened); err != nil {
			return nil, fmt.Errorf("position %s: %w", sym, err)
		}
		out[sym] = p
	}
	return out, rows.Err()
}

// SavePositions replaces the closing portfolio of year. Flat positions are
// skipped.
func (r *SQLRepository) SavePositions(ctx context.Context, year int, positions map[string]models.Position) error {
	syms := make([]string, 0, len(positions))
	for s, p := range positions {
		if p.Quantity != 0 {
			syms = append(syms, s)
		}
	}
	sort.Strings(syms)

	rows := make([][]any, 0, len(syms))
	for _, s := range syms {
		p := positions[s]
		rows = append(rows, []any{year, s, p.Quantity, p.TotalCost, p.AverageCost, formatTime(p.OpenDate)})
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM positions WHERE year = $1`), year); err != nil {
			return err
		}
		return r.bulkInsert(ctx, tx, "positions",
			[]string{"year", "symbol", "quantity", "total_cost", "average_cost", "open_date"}, rows)
	})
}

// LoadRates returns the rates stored for year.
func (r *SQLRepository) LoadRates(ctx context.Context, year int) (map[fx.Key]float64, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT rate_date, currency, rate FROM fx_rates WHERE year = $1`), year)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[fx.Key]float64{}
	for rows.Next() {
		var k fx.Key
		var v float64
		if err := rows.Scan(&k.Date, &k.Currency, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SaveRates upserts rates for year.
func (r *SQLRepository) SaveRates(ctx context.Context, year int, rates map[fx.Key]float64) error {
	keys := make([]fx.Key, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, r.q(`
			INSERT INTO fx_rates (year, rate_date, currency, rate)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (year, rate_date, currency)
			DO UPDATE SET rate = EXCLUDED.rate`))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, year, k.Date, k.Currency, rates[k]); err != nil {
				return fmt.Errorf("rate %s: %w", k, err)
			}
		}
		return nil
	})
}

// SaveReport records a run and replaces the K4 entries and statistics of
// year with the report's.
func (r *SQLRepository) SaveReport(ctx context.Context, year int, report *models.Report) error {
	entries := make([][]any, 0, len(report.Entries))
	for _, e := range report.Entries {
		entries = append(entries, []any{year, report.RunID, e.Symbol, e.Description, e.Quantity, e.Proceeds, e.CostBasis})
	}
	stats := make([][]any, 0, len(report.Statistics))
	for i, s := range report.Statistics {
		stats = append(stats, []any{
			year, report.RunID, i, formatTime(s.Date), s.Symbol, s.Description,
			s.PriorQuantity, s.Delta, s.ProfitLoss, s.ProfitLossPct, formatTime(s.OpenDate),
		})
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM k4_entries WHERE year = $1`), year); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM trade_statistics WHERE year = $1`), year); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			r.q(`INSERT INTO run_log (run_id, year, trades, generated_at) VALUES ($1, $2, $3, $4)`),
			report.RunID, year, report.Trades, formatTime(report.GeneratedAt)); err != nil {
			return err
		}
		if err := r.bulkInsert(ctx, tx, "k4_entries",
			[]string{"year", "run_id", "symbol", "description", "quantity", "proceeds", "cost_basis"}, entries); err != nil {
			return fmt.Errorf("k4 entries: %w", err)
		}
		if err := r.bulkInsert(ctx, tx, "trade_statistics",
			[]string{"year", "run_id", "seq", "trade_date", "symbol", "description",
				"prior_quantity", "delta", "profit_loss", "profit_loss_pct", "open_date"}, stats); err != nil {
			return fmt.Errorf("statistics: %w", err)
		}
		return nil
	})
}

// LoadReport returns the latest run of year with its entries, statistics
// and closing positions, or nil when year has no run.
func (r *SQLRepository) LoadReport(ctx context.Context, year int) (*models.Report, error) {
	var (
		rep       models.Report
		generated sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		r.q(`SELECT run_id, trades, generated_at FROM run_log WHERE year = $1 ORDER BY generated_at DESC LIMIT 1`), year).
		Scan(&rep.RunID, &rep.Trades, &generated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rep.Year = year
	if rep.GeneratedAt, err = parseTime(generated); err != nil {
		return nil, err
	}

	if rep.Entries, err = r.loadEntries(ctx, year); err != nil {
		return nil, fmt.Errorf("k4 entries: %w", err)
	}
	if rep.Statistics, err = r.loadStatistics(ctx, year); err != nil {
		return nil, fmt.Errorf("statistics: %w", err)
	}
	// closing positions of year are the opening positions of year+1
	if rep.Positions, err = r.LoadPositions(ctx, year+1); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	return &rep, nil
}

func (r *SQLRepository) loadEntries(ctx context.Context, year int) ([]models.K4Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		r.q(`SELECT symbol, description, quantity, proceeds, cost_basis FROM k4_entries WHERE year = $1 ORDER BY symbol`), year)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.K4Entry
	for rows.Next() {
		var e models.K4Entry
		if err := rows.Scan(&e.Symbol, &e.Description, &e.Quantity, &e.Proceeds, &e.CostBasis); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRepository) loadStatistics(ctx context.Context, year int) ([]models.Statistic, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT trade_date, symbol, description, prior_quantity, delta, profit_loss, profit_loss_pct, open_date
		FROM trade_statistics WHERE year = $1 ORDER BY seq`), year)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Statistic
	for rows.Next() {
		var (
			s              models.Statistic
			date, openDate sql.NullString
		)
		if err := rows.Scan(&date, &s.Symbol, &s.Description, &s.PriorQuantity, &s.Delta, &s.ProfitLoss, &s.ProfitLossPct, &openDate); err != nil {
			return nil, err
		}
		if s.Date, err = parseTime(date); err != nil {
			return nil, err
		}
		if s.OpenDate, err = parseTime(openDate); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// bulkInsert loads rows into table inside tx. PostgreSQL uses COPY; SQLite
// a prepared INSERT executed per row.
func (r *SQLRepository) bulkInsert(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	if r.dialect != DialectPostgres {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")))
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return err
			}
		}
		return nil
	}

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, cols...))
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	return stmt.Close()
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// q rebinds $n placeholders to ? for SQLite. Queries reference every
// parameter once, in order.
func (r *SQLRepository) q(query string) string {
	if r.dialect != DialectSQLite {
		return query
	}
	return rebind(query)
}

func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('?')
		i = j - 1
	}
	return b.String()
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s.String, err)
	}
	return t, nil
}
