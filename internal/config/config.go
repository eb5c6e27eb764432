// Package config содержит логику чтения конфигурации клиента курьера.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/mmeshcher/livreur-console/internal/scanner"
)

const (
	defaultAPIURL     = "http://localhost:5000/api"
	defaultRunAddress = "localhost:8090"
)

// Config содержит параметры конфигурации клиента курьера.
type Config struct {
	APIURL         string        `env:"API_URL"`
	RunAddress     string        `env:"RUN_ADDRESS"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	StateFile      string        `env:"LIVREUR_STATE_FILE"`
	ScannerCommand string        `env:"SCANNER_COMMAND"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// ScannerArgs возвращает команду декодера, разбитую на аргументы.
func (c *Config) ScannerArgs() []string {
	return strings.Fields(c.ScannerCommand)
}

// Parse считывает конфигурацию из .env, флагов и переменных окружения.
// Переменные окружения имеют приоритет над флагами. Возвращает аргументы,
// оставшиеся после глобальных флагов (имя подкоманды и её флаги).
func Parse(args []string) (*Config, []string, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	flags := pflag.NewFlagSet("livreur", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.SetInterspersed(false)

	flags.StringVarP(&cfg.APIURL, "api-url", "u", defaultAPIURL, "backend API base URL")
	flags.StringVarP(&cfg.RunAddress, "address", "a", defaultRunAddress, "address of the local console server")
	flags.StringVarP(&cfg.DatabaseURI, "database", "d", "", "database URI for shared settings storage")
	flags.StringVarP(&cfg.StateFile, "state", "s", defaultStateFile(), "path of the local settings file")
	flags.StringVarP(&cfg.ScannerCommand, "scanner", "c", strings.Join(scanner.DefaultCommand, " "), "decoder command printing one code per line")
	flags.DurationVarP(&cfg.RequestTimeout, "timeout", "t", 0, "API request timeout, 0 disables it")

	if err := flags.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.APIURL == "" {
		return nil, nil, errors.New("API URL is required")
	}
	if cfg.RequestTimeout < 0 {
		return nil, nil, fmt.Errorf("invalid request timeout: %s", cfg.RequestTimeout)
	}

	return cfg, flags.Args(), nil
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".livreur", "state.yaml")
	}
	return filepath.Join(home, ".livreur", "state.yaml")
}
