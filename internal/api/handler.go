package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/guttosm/k4ledger/internal/domain/dto"
	"github.com/guttosm/k4ledger/internal/engine"
	"github.com/guttosm/k4ledger/internal/fx"
	"github.com/guttosm/k4ledger/internal/service"
)

const (
	minYear = 1990
	maxYear = 2100
)

// RunTimeout bounds a shared run, independently of the requests waiting on it.
const RunTimeout = 5 * time.Minute

// Handler exposes stored tax-year reports and triggers pipeline runs.
//
// Responsibilities:
//   - Validate the {year} path parameter
//   - Call the report service with the request context
//   - Map service errors to status codes and DTOs
type Handler struct {
	svc  service.ReportService
	runs singleflight.Group
}

// NewHandler constructs a Handler over svc.
func NewHandler(svc service.ReportService) *Handler {
	return &Handler{svc: svc}
}

// parseYear reads {year}; on failure it writes 400 and returns false.
func parseYear(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < minYear || year > maxYear {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid year, expected YYYY", err))
		return 0, false
	}
	return year, true
}

// fail maps err to a status and writes the error body.
//
//   - no stored run: 404
//   - replay errors (missing position, missing rate): 422
//   - anything else: 500
func fail(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNoPosition), errors.Is(err, fx.ErrMissingRate):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, dto.NewErrorResponse(message, err))
}

// GetK4 godoc
// @Summary      K4 rows of a tax year
// @Description  Returns the whole-krona K4 rows of the last stored run, with net income and tax
// @Tags         reports
// @Produce      json
// @Param        year  path      int  true  "Tax year" example(2025)
// @Success      200   {object}  dto.K4Response
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Failure      500   {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/reports/{year}/k4 [get]
func (h *Handler) GetK4(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}
	r, err := h.svc.GetReport(c.Request.Context(), year)
	if err != nil {
		fail(c, "failed to load report", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewK4Response(r))
}

// GetPositions godoc
// @Summary      Closing positions of a tax year
// @Tags         reports
// @Produce      json
// @Param        year  path      int  true  "Tax year" example(2025)
// @Success      200   {object}  dto.PositionsResponse
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Failure      500   {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/reports/{year}/positions [get]
func (h *Handler) GetPositions(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}
	r, err := h.svc.GetReport(c.Request.Context(), year)
	if err != nil {
		fail(c, "failed to load report", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPositionsResponse(r))
}

// GetJournal godoc
// @Summary      Trading journal of a tax year
// @Description  Round trips rebuilt from the stored statistics, with the summary and the monthly tracker
// @Tags         reports
// @Produce      json
// @Param        year  path      int  true  "Tax year" example(2025)
// @Success      200   {object}  dto.JournalResponse
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404   {object}  dto.ErrorResponse  "Not Found"
// @Failure      500   {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/reports/{year}/journal [get]
func (h *Handler) GetJournal(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}
	v, err := h.svc.GetJournal(c.Request.Context(), year)
	if err != nil {
		fail(c, "failed to load journal", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewJournalResponse(v.Year, v.Entries, v.Summary, v.Monthly))
}

// RunYear godoc
// @Summary      Run a tax year
// @Description  Replays the year's exports from INPUT_DIR and stores the result. Concurrent requests for one year share a run.
// @Tags         reports
// @Produce      json
// @Param        year  path      int  true  "Tax year" example(2025)
// @Success      200   {object}  dto.RunResponse
// @Failure      400   {object}  dto.ErrorResponse  "Bad Request"
// @Failure      422   {object}  dto.ErrorResponse  "Replay failed"
// @Failure      500   {object}  dto.ErrorResponse  "Internal Error"
// @Failure      504   {object}  dto.ErrorResponse  "Request ended before the run"
// @Router       /api/v1/reports/{year}/run [post]
func (h *Handler) RunYear(c *gin.Context) {
	year, ok := parseYear(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ch := h.runs.DoChan(strconv.Itoa(year), func() (any, error) {
		// the run outlives the request that started it
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RunTimeout)
		defer cancel()
		return h.svc.RunYear(runCtx, year)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		c.JSON(http.StatusGatewayTimeout, dto.NewErrorResponse("run still in progress", ctx.Err()))
		return
	case out = <-ch:
	}
	if out.Err != nil {
		fail(c, "run failed", out.Err)
		return
	}
	res := out.Val.(*service.Result)
	c.JSON(http.StatusOK, dto.RunResponse{
		Year:           year,
		RunID:          res.Report.RunID,
		Trades:         res.Report.Trades,
		Rows:           len(res.Rows),
		OpenPositions:  len(res.Report.Positions),
		JournalEntries: len(res.Journal),
		Totals:         res.Totals,
	})
}
