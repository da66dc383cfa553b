package bootstrap

import (
	"fmt"
	"os"

	"github.com/jonesrussell/alerthub/internal/config"
	"github.com/jonesrussell/alerthub/internal/logger"
)

// configPathEnv overrides the default config file location.
const configPathEnv = "ALERTHUB_CONFIG"

// LoadConfig loads and validates the service configuration.
func LoadConfig() (*config.Config, error) {
	configPath := os.Getenv(configPathEnv)
	if configPath == "" {
		configPath = "config.yml"
	}

	cfg, loadErr := config.Load(configPath)
	if loadErr != nil {
		return nil, fmt.Errorf("load config: %w", loadErr)
	}

	return cfg, nil
}

// CreateLogger creates a structured logger for the service.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, logErr := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if logErr != nil {
		return nil, fmt.Errorf("create logger: %w", logErr)
	}

	return log.With(logger.String("service", cfg.Service.Name)), nil
}
