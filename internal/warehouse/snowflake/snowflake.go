// Package snowflake is the Snowflake warehouse backend. Projects map to
// databases and datasets to schemas.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"mlprep/internal/blob"
	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

// DefaultStage is the user stage path local files are uploaded to.
const DefaultStage = "@~/mlprep"

// Config holds Snowflake connection configuration
type Config struct {
	Account            string
	Username           string
	Password           string
	Role               string
	Warehouse          string
	StorageIntegration string
	Timeout            time.Duration
}

// Dialect renders Snowflake SQL.
type Dialect struct {
	// StorageIntegration authorizes COPY INTO from external locations.
	StorageIntegration string
	// Stage receives local files before they are copied. Defaults to DefaultStage.
	Stage string
}

var _ warehouse.Dialect = Dialect{}

func (Dialect) Name() string { return "snowflake" }

func (Dialect) Quote(ident string) string { return warehouse.QuoteIdent(ident) }

func (Dialect) TypeName(t warehouse.FieldType) string {
	switch t {
	case warehouse.FieldNumeric:
		return "NUMBER(38,9)"
	default:
		return "VARCHAR"
	}
}

func (d Dialect) CreateDatasetSQL(ds warehouse.DatasetRef) []string {
	return []string{fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", d.Quote(ds.Project), d.Quote(ds.Dataset))}
}

// BucketExpr hashes the JSON form of the whole row. OBJECT_CONSTRUCT(*)
// covers every column of the single table in scope, so alias is unused.
func (Dialect) BucketExpr(alias string, columns warehouse.Schema) string {
	return fmt.Sprintf("ABS(MOD(HASH(TO_JSON(OBJECT_CONSTRUCT(*))), %d))", warehouse.BucketCount)
}

func (d Dialect) ReplaceTableSQL(ref warehouse.TableRef, query string) string {
	return warehouse.CreateOrReplaceTableSQL(d, ref, query)
}

// CopyCSV runs COPY INTO from an external location or stage. Local files are
// uploaded with PUT first.
func (d Dialect) CopyCSV(ctx context.Context, db *sql.DB, ref warehouse.TableRef, source string, schema warehouse.Schema, opts warehouse.CSVOptions) error {
	from := source
	if local, ok := blob.LocalPath(source); ok {
		put, staged, err := d.putStatement(local)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, put); err != nil {
			return errors.SQLError("Failed to upload file to stage", put, err)
		}
		from = staged
	}

	stmt := d.CopyStatement(ref, from, opts)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.SQLError("COPY INTO failed", stmt, err)
	}
	return nil
}

// CopyStatement renders the COPY INTO statement for a stage path ("@...") or
// an external location URI.
func (d Dialect) CopyStatement(ref warehouse.TableRef, from string, opts warehouse.CSVOptions) string {
	var b strings.Builder
	b.WriteString("COPY INTO ")
	b.WriteString(warehouse.Qualified(d, ref))
	b.WriteString(" FROM ")
	if strings.HasPrefix(from, "@") {
		b.WriteString(from)
	} else {
		b.WriteString(warehouse.QuoteLiteral(from))
		if d.StorageIntegration != "" {
			b.WriteString(" STORAGE_INTEGRATION = ")
			b.WriteString(d.StorageIntegration)
		}
	}
	fmt.Fprintf(&b, " FILE_FORMAT = (TYPE = CSV SKIP_HEADER = %d FIELD_OPTIONALLY_ENCLOSED_BY = '\"')", opts.SkipLeadingRows)
	b.WriteString(" ON_ERROR = ABORT_STATEMENT")
	return b.String()
}

// putStatement returns the PUT statement for a local file and the staged
// path of the compressed upload.
func (d Dialect) putStatement(local string) (stmt, staged string, err error) {
	abs, err := filepath.Abs(local)
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to resolve local source path")
	}
	stage := d.Stage
	if stage == "" {
		stage = DefaultStage
	}
	stmt = fmt.Sprintf("PUT %s %s AUTO_COMPRESS = TRUE OVERWRITE = TRUE",
		warehouse.QuoteLiteral("file://"+filepath.ToSlash(abs)), stage)
	staged = strings.TrimSuffix(stage, "/") + "/" + path.Base(filepath.ToSlash(abs)) + ".gz"
	return stmt, staged, nil
}

// DSN builds a gosnowflake connection string. No session database is set:
// every statement names "project"."dataset"."table" quoted, so a project is
// matched case-sensitively everywhere.
func DSN(cfg Config) (string, error) {
	sfConfig := &gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.Username,
		Password:  cfg.Password,
		Role:      cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Timeout > 0 {
		sfConfig.LoginTimeout = cfg.Timeout
	}
	dsn, err := gosnowflake.DSN(sfConfig)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "Invalid Snowflake configuration")
	}
	return dsn, nil
}

// ValidateConfig validates the Snowflake configuration
func ValidateConfig(config Config) error {
	if config.Account == "" {
		return errors.ConfigError("account is required", "warehouse.snowflake.account")
	}
	if config.Username == "" {
		return errors.ConfigError("username is required", "warehouse.snowflake.username")
	}
	if config.Password == "" {
		return errors.ConfigError("password is required", "warehouse.snowflake.password")
	}
	if config.Warehouse == "" {
		return errors.ConfigError("warehouse is required", "warehouse.snowflake.warehouse")
	}
	return nil
}

// Open connects to Snowflake and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, Dialect, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, Dialect{}, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, Dialect{}, errors.ConnectionError("Failed to open Snowflake connection", err).
			WithContext("account", cfg.Account)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(strings.ToLower(err.Error()), "authentication") {
			return nil, Dialect{}, errors.Wrap(err, errors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", cfg.Username).
				WithSuggestions(
					"Verify your username and password",
					"Check if your account is locked",
				)
		}
		return nil, Dialect{}, errors.ConnectionError("Failed to connect to Snowflake", err).
			WithContext("account", cfg.Account)
	}

	return db, Dialect{StorageIntegration: cfg.StorageIntegration}, nil
}
