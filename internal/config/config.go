package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mlprep/internal/common"
	"mlprep/internal/warehouse"
	apperrors "mlprep/pkg/errors"
	"mlprep/pkg/models"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. MLPREP_WAREHOUSE_BACKEND.
	EnvPrefix = "MLPREP"
	// ConfigEnv names an explicit configuration file.
	ConfigEnv = "MLPREP_CONFIG"

	configName = "mlprep"
)

// GetConfigPath returns the per-user configuration directory.
func GetConfigPath() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mlprep")
}

// GetConfigFile returns the file Save writes to.
func GetConfigFile() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), configName+".yaml")
}

// SetDefaults registers every key with its default. Registering all keys
// lets environment variables override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project", "")
	v.SetDefault("region", "")
	v.SetDefault("table_name_prefix", "abalone")

	v.SetDefault("warehouse.backend", "duckdb")
	v.SetDefault("warehouse.location", "")
	v.SetDefault("warehouse.dataset", "")
	v.SetDefault("warehouse.timeout", 10*time.Minute)
	v.SetDefault("warehouse.snowflake.account", "")
	v.SetDefault("warehouse.snowflake.username", "")
	v.SetDefault("warehouse.snowflake.password", "")
	v.SetDefault("warehouse.snowflake.role", "")
	v.SetDefault("warehouse.snowflake.warehouse", "")
	v.SetDefault("warehouse.snowflake.storage_integration", "")
	v.SetDefault("warehouse.postgres.dsn", "")
	v.SetDefault("warehouse.duckdb.dir", filepath.Join(GetConfigPath(), "warehouse"))

	v.SetDefault("source.uri", "")
	v.SetDefault("source.region", "")

	v.SetDefault("split.table", "dataset")
	v.SetDefault("split.test_view", "dataset_test")

	v.SetDefault("pipeline.name", "")
	v.SetDefault("pipeline.root", "")
	v.SetDefault("pipeline.target_column", "")
	v.SetDefault("pipeline.model_display_name", "")
	v.SetDefault("pipeline.endpoint_name", "")
	v.SetDefault("pipeline.service_account", "")
	v.SetDefault("pipeline.network", "")
	v.SetDefault("pipeline.encryption_key_id", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "mlprep")
}

// New returns a viper instance that reads configFile, or mlprep.yaml from
// the working directory or the per-user directory when configFile is empty.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(ConfigEnv)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mlprep"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Defaults returns a configuration holding only the default values.
func Defaults() (*models.Config, error) {
	v := viper.New()
	SetDefaults(v)

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to decode default configuration")
	}
	return &cfg, nil
}

// Load reads the configuration. A missing file in the search path is not an
// error; a missing explicit file is.
func Load(v *viper.Viper) (*models.Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case os.IsNotExist(err) || errors.Is(err, os.ErrNotExist):
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigNotFound, "Configuration file not found").
				WithContext("path", v.ConfigFileUsed()).
				WithSuggestions("Run 'mlprep setup' to create one")
		default:
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to read configuration").
				WithContext("path", v.ConfigFileUsed())
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Failed to decode configuration")
	}
	return &cfg, nil
}

// Save writes the configuration as YAML with owner-only permissions.
func Save(cfg *models.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the settings shared by every command. Step inputs are
// checked by the steps themselves.
func Validate(cfg *models.Config) error {
	if col := cfg.Pipeline.TargetColumn; col != "" && !warehouse.RawSchema.Has(col) {
		return apperrors.ValidationError("pipeline.target_column", col, "must name a column of the raw schema").
			WithSuggestions("Use one of: " + strings.Join(warehouse.RawSchema.Names(), ", "))
	}
	if cfg.Warehouse.Timeout < 0 {
		return apperrors.ValidationError("warehouse.timeout", cfg.Warehouse.Timeout, "must not be negative")
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "json", "console":
	default:
		return apperrors.ValidationError("logging.format", cfg.Logging.Format, "must be json or console")
	}
	return nil
}
