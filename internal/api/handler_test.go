package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/k4ledger/internal/domain/dto"
	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/engine"
	"github.com/guttosm/k4ledger/internal/ingestion"
	"github.com/guttosm/k4ledger/internal/k4"
	"github.com/guttosm/k4ledger/internal/service"
)

type mockReportService struct {
	report  *models.Report
	journal *service.JournalView
	result  *service.Result
	err     error

	runs     atomic.Int32
	canceled atomic.Bool
	delay    time.Duration
}

var _ service.ReportService = (*mockReportService)(nil)

func (m *mockReportService) Run(_ context.Context, _ ingestion.Job) (*service.Result, error) {
	return m.result, m.err
}

func (m *mockReportService) RunYear(ctx context.Context, _ int) (*service.Result, error) {
	m.runs.Add(1)
	select {
	case <-ctx.Done():
		m.canceled.Store(true)
		return nil, ctx.Err()
	case <-time.After(m.delay):
	}
	return m.result, m.err
}

func (m *mockReportService) GetReport(_ context.Context, year int) (*models.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return nil, fmt.Errorf("%w %d", service.ErrNotFound, year)
	}
	return m.report, nil
}

func (m *mockReportService) GetJournal(_ context.Context, year int) (*service.JournalView, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.journal == nil {
		return nil, fmt.Errorf("%w %d", service.ErrNotFound, year)
	}
	return m.journal, nil
}

func setupRouterWithMock(s service.ReportService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s)
	r := gin.New()
	reports := r.Group("/api/v1/reports/:year")
	reports.GET("/k4", h.GetK4)
	reports.GET("/positions", h.GetPositions)
	reports.GET("/journal", h.GetJournal)
	reports.POST("/run", h.RunYear)
	return r
}

func sampleReport() *models.Report {
	return &models.Report{
		RunID: "run-1",
		Year:  2025,
		Entries: []models.K4Entry{
			{Symbol: "AAPL", Description: "APPLE INC", Quantity: 10, Proceeds: 13189, CostBasis: 10010},
		},
		Positions: map[string]models.Position{"USD": {Quantity: 198, TotalCost: 2178, AverageCost: 11}},
	}
}

func TestHandlers_TableDriven(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockReportService
		method string
		path   string
		status int
		assert func(t *testing.T, body []byte)
	}{
		{
			name:   "invalid year",
			svc:    &mockReportService{},
			method: http.MethodGet,
			path:   "/api/v1/reports/abc/k4",
			status: http.StatusBadRequest,
		},
		{
			name:   "year out of range",
			svc:    &mockReportService{},
			method: http.MethodGet,
			path:   "/api/v1/reports/1066/k4",
			status: http.StatusBadRequest,
		},
		{
			name:   "k4 not found",
			svc:    &mockReportService{},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/k4",
			status: http.StatusNotFound,
			assert: func(t *testing.T, body []byte) {
				var out dto.ErrorResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.Message != "failed to load report" || out.ErrorDetails == "" {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
		{
			name:   "k4 store error",
			svc:    &mockReportService{err: errors.New("db down")},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/k4",
			status: http.StatusInternalServerError,
		},
		{
			name:   "k4 success",
			svc:    &mockReportService{report: sampleReport()},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/k4",
			status: http.StatusOK,
			assert: func(t *testing.T, body []byte) {
				var out dto.K4Response
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(out.Rows) != 1 || out.Rows[0].Proceeds != 13189 || out.Totals.Income != 3179 || out.Totals.Tax != 954 {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
		{
			name:   "positions success",
			svc:    &mockReportService{report: sampleReport()},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/positions",
			status: http.StatusOK,
			assert: func(t *testing.T, body []byte) {
				var out dto.PositionsResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if len(out.Positions) != 1 || out.Positions[0].Symbol != "USD" {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
		{
			name:   "journal not found",
			svc:    &mockReportService{},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/journal",
			status: http.StatusNotFound,
		},
		{
			name: "journal success",
			svc: &mockReportService{journal: &service.JournalView{
				Year:    2025,
				Entries: []models.JournalEntry{{Symbol: "AAPL", ProfitLoss: 10, Win: true}},
			}},
			method: http.MethodGet,
			path:   "/api/v1/reports/2025/journal",
			status: http.StatusOK,
			assert: func(t *testing.T, body []byte) {
				var out dto.JournalResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.Year != 2025 || len(out.Entries) != 1 {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
		{
			name:   "run replay error",
			svc:    &mockReportService{err: &engine.TradeError{Symbol: "VOLV B", Err: &engine.PositionError{Symbol: "VOLV B"}}},
			method: http.MethodPost,
			path:   "/api/v1/reports/2025/run",
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "run io error",
			svc:    &mockReportService{err: errors.New("missing required files: indata_ibkr_2025.csv")},
			method: http.MethodPost,
			path:   "/api/v1/reports/2025/run",
			status: http.StatusInternalServerError,
		},
		{
			name: "run success",
			svc: &mockReportService{result: &service.Result{
				Report: sampleReport(),
				Rows:   []models.K4Row{{Symbol: "AAPL"}},
				Totals: k4.Totals{Income: 3179, Tax: 954},
			}},
			method: http.MethodPost,
			path:   "/api/v1/reports/2025/run",
			status: http.StatusOK,
			assert: func(t *testing.T, body []byte) {
				var out dto.RunResponse
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.RunID != "run-1" || out.Rows != 1 || out.OpenPositions != 1 || out.Totals.Tax != 954 {
					t.Fatalf("unexpected body: %+v", out)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMock(tc.svc)
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, w.Body.Bytes())
			}
		})
	}
}

func TestRunYear_ConcurrentRequestsShareRun(t *testing.T) {
	svc := &mockReportService{
		delay:  100 * time.Millisecond,
		result: &service.Result{Report: sampleReport()},
	}
	r := setupRouterWithMock(svc)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reports/2025/run", nil))
			if w.Code != http.StatusOK {
				t.Errorf("status %d", w.Code)
			}
		}()
	}
	wg.Wait()

	if n := svc.runs.Load(); n >= 4 {
		t.Fatalf("expected shared runs, got %d", n)
	}
}

func TestRunYear_SharedRunSurvivesFirstCallerCancel(t *testing.T) {
	svc := &mockReportService{
		delay:  300 * time.Millisecond,
		result: &service.Result{Report: sampleReport()},
	}
	r := setupRouterWithMock(svc)

	ctx, cancel := context.WithCancel(context.Background())
	first := httptest.NewRecorder()
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/2025/run", nil).WithContext(ctx)
		r.ServeHTTP(first, req)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("run never started")
		}
		time.Sleep(time.Millisecond)
	}

	second := httptest.NewRecorder()
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/reports/2025/run", nil))
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	<-firstDone
	<-secondDone
	if first.Code != http.StatusGatewayTimeout {
		t.Fatalf("first caller: expected 504, got %d", first.Code)
	}
	if second.Code != http.StatusOK {
		t.Fatalf("second caller: expected 200, got %d (%s)", second.Code, second.Body.String())
	}
	if svc.canceled.Load() {
		t.Fatalf("shared run saw the first caller's cancellation")
	}
	if n := svc.runs.Load(); n != 1 {
		t.Fatalf("expected one shared run, got %d", n)
	}
}
