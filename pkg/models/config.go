package models

import "time"

// Config is the full mlprep configuration as read from mlprep.yaml.
type Config struct {
	Project         string    `yaml:"project" mapstructure:"project"`
	Region          string    `yaml:"region" mapstructure:"region"`
	TableNamePrefix string    `yaml:"table_name_prefix" mapstructure:"table_name_prefix"`
	Warehouse       Warehouse `yaml:"warehouse" mapstructure:"warehouse"`
	Source          Source    `yaml:"source" mapstructure:"source"`
	Split           Split     `yaml:"split" mapstructure:"split"`
	Pipeline        Pipeline  `yaml:"pipeline" mapstructure:"pipeline"`
	Logging         Logging   `yaml:"logging" mapstructure:"logging"`
	Metrics         Metrics   `yaml:"metrics" mapstructure:"metrics"`
}

// Warehouse selects and configures the analytical warehouse backend.
type Warehouse struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"`   // "snowflake", "postgres" or "duckdb"
	Location  string        `yaml:"location" mapstructure:"location"` // dataset location, recorded in artifact metadata
	Dataset   string        `yaml:"dataset" mapstructure:"dataset"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"` // per remote call
	Snowflake Snowflake     `yaml:"snowflake" mapstructure:"snowflake"`
	Postgres  Postgres      `yaml:"postgres" mapstructure:"postgres"`
	DuckDB    DuckDB        `yaml:"duckdb" mapstructure:"duckdb"`
}

type Snowflake struct {
	Account            string `yaml:"account" mapstructure:"account"`
	Username           string `yaml:"username" mapstructure:"username"`
	Password           string `yaml:"password,omitempty" mapstructure:"password"`
	Role               string `yaml:"role" mapstructure:"role"`
	Warehouse          string `yaml:"warehouse" mapstructure:"warehouse"`
	StorageIntegration string `yaml:"storage_integration,omitempty" mapstructure:"storage_integration"`
}

type Postgres struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// DuckDB keeps one database file per project under Dir; an empty Dir keeps
// everything in memory.
type DuckDB struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Source describes the raw CSV blob.
type Source struct {
	URI    string `yaml:"uri" mapstructure:"uri"`
	Region string `yaml:"region,omitempty" mapstructure:"region"` // S3 region
}

type Split struct {
	Table    string `yaml:"table" mapstructure:"table"`
	TestView string `yaml:"test_view" mapstructure:"test_view"`
}

// Pipeline holds settings consumed by the downstream training and serving
// steps. mlprep only validates and reports them.
type Pipeline struct {
	Name             string `yaml:"name" mapstructure:"name"`
	Root             string `yaml:"root" mapstructure:"root"`
	TargetColumn     string `yaml:"target_column" mapstructure:"target_column"`
	ModelDisplayName string `yaml:"model_display_name" mapstructure:"model_display_name"`
	EndpointName     string `yaml:"endpoint_name" mapstructure:"endpoint_name"`
	ServiceAccount   string `yaml:"service_account,omitempty" mapstructure:"service_account"`
	Network          string `yaml:"network,omitempty" mapstructure:"network"`
	EncryptionKeyID  string `yaml:"encryption_key_id,omitempty" mapstructure:"encryption_key_id"`
}

type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

type Metrics struct {
	Pushgateway string `yaml:"pushgateway,omitempty" mapstructure:"pushgateway"`
	Job         string `yaml:"job" mapstructure:"job"`
}
