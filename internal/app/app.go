package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/api"
	"github.com/guttosm/k4ledger/internal/service"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Opens the snapshot store selected by STORE_DRIVER.
//   - Builds the report service from the ledger and taxpayer settings.
//   - Creates the HTTP handler layer and the router.
//   - Registers health and readiness probes backed by the store's Ping.
//   - Provides a cleanup function to close the store.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp(ctx context.Context) (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	settings, err := SettingsFrom(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := storeOpener(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Years served over HTTP share OUTPUT_DIR
	settings.SplitByYear = true
	svc := service.NewReportService(store, settings)

	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)
	api.NewHealthHandler(store.Ping).Register(router)

	return router, closeStore, nil
}
