package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guttosm/k4ledger/internal/domain/models"
)

type dummyErr struct{}

func (dummyErr) Error() string { return "dummy" }

func newMockRepo(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := NewSQLRepository(db, DialectPostgres)
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func TestSavePositions_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM positions WHERE year = $1")).
		WithArgs(2025).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL synchronous_commit = OFF")).WillReturnResult(sqlmock.NewResult(0, 0))
	// pq.CopyIn is driver specific; sqlmock sees it as a prepared statement
	// executed once per row plus a final flush.
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WithArgs(2025, "AAPL", 10.0, 3010.0, 301.0, sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	positions := map[string]models.Position{
		"AAPL": {Quantity: 10, TotalCost: 3010, AverageCost: 301, OpenDate: time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC)},
		"MSFT": {},
	}
	if err := repo.SavePositions(context.Background(), 2025, positions); err != nil {
		t.Fatalf("SavePositions: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSavePositions_ErrorOnBegin(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin().WillReturnError(dummyErr{})
	if err := repo.SavePositions(context.Background(), 2025, map[string]models.Position{"X": {Quantity: 1}}); err == nil {
		t.Fatalf("expected error on begin")
	}
}

func TestSavePositions_ErrorOnRowExec(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM positions WHERE year = $1")).WithArgs(2025).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL synchronous_commit = OFF")).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WillReturnError(dummyErr{})
	mock.ExpectRollback()

	if err := repo.SavePositions(context.Background(), 2025, map[string]models.Position{"X": {Quantity: 1}}); err == nil {
		t.Fatalf("expected error on row exec")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadPositions_SQLMock(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	rows := sqlmock.NewRows([]string{"symbol", "quantity", "total_cost", "open_date"}).
		AddRow("AAPL", 10.0, 3010.0, "2025-02-25T03:06:16Z").
		AddRow("USD", -301.0, -3010.0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT symbol, quantity, total_cost, open_date FROM positions WHERE year = $1")).
		WithArgs(2024).WillReturnRows(rows)

	got, err := repo.LoadPositions(context.Background(), 2025)
	if err != nil {
		t.Fatalf("LoadPositions: %v", err)
	}
	if got["AAPL"].AverageCost != 301 || got["AAPL"].OpenDate.IsZero() {
		t.Fatalf("unexpected AAPL %+v", got["AAPL"])
	}
	if got["USD"].AverageCost != 10 || !got["USD"].OpenDate.IsZero() {
		t.Fatalf("unexpected USD %+v", got["USD"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLoadReport_NoRun(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_id, trades, generated_at FROM run_log WHERE year = $1")).
		WithArgs(2025).WillReturnError(sql.ErrNoRows)

	rep, err := repo.LoadReport(context.Background(), 2025)
	if err != nil || rep != nil {
		t.Fatalf("want nil,nil got %+v %v", rep, err)
	}
}

func TestSaveReport_RollsBackOnRunLogError(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM k4_entries WHERE year = $1")).WithArgs(2025).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM trade_statistics WHERE year = $1")).WithArgs(2025).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO run_log")).WillReturnError(dummyErr{})
	mock.ExpectRollback()

	rep := &models.Report{RunID: "r1", Year: 2025, GeneratedAt: time.Now()}
	if err := repo.SaveReport(context.Background(), 2025, rep); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRebind(t *testing.T) {
	cases := []struct{ in, want string }{
		{"SELECT 1", "SELECT 1"},
		{"WHERE year = $1", "WHERE year = ?"},
		{"VALUES ($1, $2, $3, $10)", "VALUES (?, ?, ?, ?)"},
		{"SELECT '$' || name", "SELECT '$' || name"},
	}
	for _, c := range cases {
		if got := rebind(c.in); got != c.want {
			t.Fatalf("rebind(%q)=%q want %q", c.in, got, c.want)
		}
	}

	repo := NewSQLRepository(nil, DialectPostgres)
	if repo.q("a = $1") != "a = $1" {
		t.Fatalf("postgres query must not be rebound")
	}
}

func TestGooseDialect(t *testing.T) {
	if d, _ := gooseDialect(DialectSQLite); d != "sqlite3" {
		t.Fatalf("sqlite dialect=%q", d)
	}
	if d, _ := gooseDialect(DialectPostgres); d != "postgres" {
		t.Fatalf("postgres dialect=%q", d)
	}
	if _, err := gooseDialect("mysql"); err == nil {
		t.Fatalf("expected error")
	}
}
