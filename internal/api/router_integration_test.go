//go:build integration
// +build integration

package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/app"
	"github.com/guttosm/k4ledger/internal/storage"
)

func startPG(t *testing.T) (dsn string, host string, port nat.Port, terminate func()) {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "k4ledger",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(h string, p nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=k4ledger sslmode=disable", h, p.Port())
		}).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	h, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", h, mp.Port(), "k4ledger")
	terminate = func() { _ = c.Terminate(context.Background()) }
	return dsn, h, mp, terminate
}

func openAndMigrate(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := storage.Migrate(context.Background(), db, storage.DialectPostgres); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

const e2eExport = `"DateTime","Symbol","Buy/Sell","Quantity","TradePrice","IBCommission","CurrencyPrimary","Description","ISIN","Exchange"` + "\n" +
	`"20250225;100000","AAPL","BUY","10","100","-1","USD","APPLE INC","US0378331005","NASDAQ"` + "\n" +
	`"20250310;100000","AAPL","SELL","-10","120","-1","USD","APPLE INC","US0378331005","NASDAQ"` + "\n" +
	`"Date/Time","FromCurrency","ToCurrency","Rate"` + "\n" +
	`"20250225;000000","USD","SEK","10"` + "\n" +
	`"20250310;000000","USD","SEK","11"` + "\n"

func TestAPI_E2E_RunThenK4(t *testing.T) {
	dsn, host, port, term := startPG(t)
	defer term()
	db := openAndMigrate(t, dsn)
	defer db.Close()

	in, out := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "indata_ibkr_2025.csv"), []byte(e2eExport), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}

	// Point application config to containerized DB
	p, _ := nat.ParsePort(port.Port())
	config.AppConfig = config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Ledger: config.LedgerConfig{InputDir: in, OutputDir: out, Year: 2025, UnmatchedOptionSell: "fail"},
		Store:  config.StoreConfig{Driver: config.StorePostgres},
		Postgres: config.PostgresConfig{
			Host:     host,
			Port:     p,
			User:     "postgres",
			Password: "postgres",
			DBName:   "k4ledger",
			SSLMode:  "disable",
		},
	}

	router, cleanup, err := app.InitializeApp(context.Background())
	if err != nil {
		t.Fatalf("init app: %v", err)
	}
	defer cleanup()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports/2025/run", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("run: status %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/2025/k4", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("k4: status %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Year int `json:"year"`
		Rows []struct {
			Symbol    string `json:"symbol"`
			Proceeds  int64  `json:"proceeds"`
			CostBasis int64  `json:"cost_basis"`
		} `json:"rows"`
		Totals struct {
			Income int64 `json:"income"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Year != 2025 || len(body.Rows) != 2 || body.Totals.Income != 2178 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Rows[0].Symbol != "AAPL" || body.Rows[0].Proceeds != 13189 || body.Rows[0].CostBasis != 10010 {
		t.Fatalf("unexpected AAPL row: %+v", body.Rows[0])
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM positions WHERE year = 2025`).Scan(&n); err != nil {
		t.Fatalf("count positions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the USD balance only, got %d positions", n)
	}
}
