package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	INPUT_DIR=input
//	OUTPUT_DIR=output
//	TAX_YEAR=2025
//	STORE_DRIVER=file
//	OPTION_UNMATCHED_SELL=fail
//	TAXPAYER_ORGNR=196001011234
//	POSTGRES_HOST=localhost
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Ledger   LedgerConfig   // Run inputs, outputs and engine policy
	Store    StoreConfig    // Snapshot persistence backend
	Postgres PostgresConfig // PostgreSQL connection settings
	Taxpayer TaxpayerConfig // Identity written to the SRU files
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// LedgerConfig controls a single replay.
//
// Fields:
//   - InputDir: directory with broker exports and the persisted snapshots.
//   - OutputDir: directory receiving SRU files, CSV statistics and saved snapshots.
//   - Year: default tax year.
//   - UnmatchedOptionSell: "fail" or "skip" for option-lot sells without a position.
//   - LongNames: write the instrument description instead of the ticker in BLANKETTER.SRU.
type LedgerConfig struct {
	InputDir            string
	OutputDir           string
	Year                int
	UnmatchedOptionSell string
	LongNames           bool
}

// StoreConfig selects where positions, rates and reports are persisted.
type StoreConfig struct {
	Driver     string // file | postgres | sqlite
	SQLitePath string
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// TaxpayerConfig is the identity block of INFO.SRU and BLANKETTER.SRU.
type TaxpayerConfig struct {
	OrgNr    string
	Name     string
	Address  string
	PostCode string
	City     string
	Email    string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and read by cmd and app wiring.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Behavior:
//   - Sets defaults for all required fields.
//   - Reads environment variables automatically with viper.AutomaticEnv().
//   - Constructs the PostgreSQL connection string (DSN).
//   - Calls validateConfig() and returns its error, if any.
func LoadConfig() error {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("INPUT_DIR", "input")
	viper.SetDefault("OUTPUT_DIR", "output")
	viper.SetDefault("TAX_YEAR", 2025)
	viper.SetDefault("OPTION_UNMATCHED_SELL", "fail")
	viper.SetDefault("SRU_LONG_NAMES", false)

	viper.SetDefault("STORE_DRIVER", StoreFile)
	viper.SetDefault("SQLITE_PATH", "output/k4ledger.db")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "k4ledger")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Ledger: LedgerConfig{
			InputDir:            viper.GetString("INPUT_DIR"),
			OutputDir:           viper.GetString("OUTPUT_DIR"),
			Year:                viper.GetInt("TAX_YEAR"),
			UnmatchedOptionSell: strings.ToLower(viper.GetString("OPTION_UNMATCHED_SELL")),
			LongNames:           viper.GetBool("SRU_LONG_NAMES"),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(viper.GetString("STORE_DRIVER")),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Taxpayer: TaxpayerConfig{
			OrgNr:    viper.GetString("TAXPAYER_ORGNR"),
			Name:     viper.GetString("TAXPAYER_NAME"),
			Address:  viper.GetString("TAXPAYER_ADDRESS"),
			PostCode: viper.GetString("TAXPAYER_POSTCODE"),
			City:     viper.GetString("TAXPAYER_CITY"),
			Email:    viper.GetString("TAXPAYER_EMAIL"),
		},
	}

	AppConfig.Postgres.URL = PostgresDSN(AppConfig.Postgres)

	return validateConfig(AppConfig)
}

// PostgresDSN builds the connection URL used by database/sql.
func PostgresDSN(p PostgresConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// validateConfig ensures required variables are present and valid.
//
// Behavior:
//   - Checks each critical field of cfg.
//   - Collects missing or invalid ones in a slice.
//   - Postgres settings are only required when STORE_DRIVER=postgres.
//   - Returns a single error naming every offending variable.
func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Ledger.InputDir == "" {
		missing = append(missing, "INPUT_DIR")
	}
	if cfg.Ledger.OutputDir == "" {
		missing = append(missing, "OUTPUT_DIR")
	}
	if cfg.Ledger.Year <= 0 {
		missing = append(missing, "TAX_YEAR")
	}
	switch cfg.Ledger.UnmatchedOptionSell {
	case "fail", "skip":
	default:
		missing = append(missing, "OPTION_UNMATCHED_SELL")
	}

	switch cfg.Store.Driver {
	case StoreFile:
	case StoreSQLite:
		if cfg.Store.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case StorePostgres:
		if cfg.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if cfg.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if cfg.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if cfg.Postgres.Password == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
		if cfg.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	default:
		missing = append(missing, "STORE_DRIVER")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing or invalid environment variables: %v", missing)
	}
	return nil
}
