package app

import (
	"fmt"

	"github.com/guttosm/k4ledger/config"
	"github.com/guttosm/k4ledger/internal/engine"
	"github.com/guttosm/k4ledger/internal/service"
	"github.com/guttosm/k4ledger/internal/sru"
)

// SettingsFrom maps the loaded configuration onto service settings.
func SettingsFrom(cfg config.Config) (service.Settings, error) {
	policy, err := engine.ParseOptionPolicy(cfg.Ledger.UnmatchedOptionSell)
	if err != nil {
		return service.Settings{}, fmt.Errorf("OPTION_UNMATCHED_SELL: %w", err)
	}
	return service.Settings{
		InputDir:  cfg.Ledger.InputDir,
		OutputDir: cfg.Ledger.OutputDir,
		Engine:    engine.Options{UnmatchedOptionSell: policy},
		Taxpayer: sru.Taxpayer{
			OrgNr:    cfg.Taxpayer.OrgNr,
			Name:     cfg.Taxpayer.Name,
			Address:  cfg.Taxpayer.Address,
			PostCode: cfg.Taxpayer.PostCode,
			City:     cfg.Taxpayer.City,
			Email:    cfg.Taxpayer.Email,
		},
		LongNames: cfg.Ledger.LongNames,
	}, nil
}
