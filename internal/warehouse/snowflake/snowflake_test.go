package snowflake

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlprep/internal/warehouse"
	"mlprep/pkg/errors"
)

var rawRef = warehouse.TableRef{Project: "ML_DB", Dataset: "ML_DATA", Table: "abalone_raw"}

func TestDialectSQL(t *testing.T) {
	d := Dialect{}

	assert.Equal(t, "snowflake", d.Name())
	assert.Equal(t, "NUMBER(38,9)", d.TypeName(warehouse.FieldNumeric))
	assert.Equal(t, "VARCHAR", d.TypeName(warehouse.FieldString))
	assert.Equal(t, []string{`CREATE SCHEMA IF NOT EXISTS "ML_DB"."ML_DATA"`},
		d.CreateDatasetSQL(warehouse.DatasetRef{Project: "ML_DB", Dataset: "ML_DATA"}))
	assert.Equal(t, "ABS(MOD(HASH(TO_JSON(OBJECT_CONSTRUCT(*))), 10))", d.BucketExpr("f", warehouse.RawSchema))
}

func TestCopyStatement(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		from     string
		expected string
	}{
		{
			name:    "external location",
			dialect: Dialect{},
			from:    "s3://ml-bucket/abalone.csv",
			expected: `COPY INTO "ML_DB"."ML_DATA"."abalone_raw" FROM 's3://ml-bucket/abalone.csv'` +
				` FILE_FORMAT = (TYPE = CSV SKIP_HEADER = 1 FIELD_OPTIONALLY_ENCLOSED_BY = '"') ON_ERROR = ABORT_STATEMENT`,
		},
		{
			name:    "external location with storage integration",
			dialect: Dialect{StorageIntegration: "S3_INT"},
			from:    "s3://ml-bucket/abalone.csv",
			expected: `COPY INTO "ML_DB"."ML_DATA"."abalone_raw" FROM 's3://ml-bucket/abalone.csv' STORAGE_INTEGRATION = S3_INT` +
				` FILE_FORMAT = (TYPE = CSV SKIP_HEADER = 1 FIELD_OPTIONALLY_ENCLOSED_BY = '"') ON_ERROR = ABORT_STATEMENT`,
		},
		{
			name:    "named stage ignores storage integration",
			dialect: Dialect{StorageIntegration: "S3_INT"},
			from:    "@ML_STAGE/abalone.csv",
			expected: `COPY INTO "ML_DB"."ML_DATA"."abalone_raw" FROM @ML_STAGE/abalone.csv` +
				` FILE_FORMAT = (TYPE = CSV SKIP_HEADER = 1 FIELD_OPTIONALLY_ENCLOSED_BY = '"') ON_ERROR = ABORT_STATEMENT`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.dialect.CopyStatement(rawRef, tt.from, warehouse.CSVOptions{SkipLeadingRows: 1})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCopyCSVExternal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`COPY INTO "ML_DB"."ML_DATA"."abalone_raw" FROM 's3://ml-bucket/abalone.csv'`)).
		WillReturnResult(sqlmock.NewResult(0, 4177))

	err = Dialect{}.CopyCSV(context.Background(), db, rawRef, "s3://ml-bucket/abalone.csv", warehouse.RawSchema,
		warehouse.CSVOptions{SkipLeadingRows: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyCSVLocalFileIsStaged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	abs, err := filepath.Abs("abalone.csv")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("PUT 'file://%s' @~/mlprep AUTO_COMPRESS = TRUE OVERWRITE = TRUE", filepath.ToSlash(abs)))).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`FROM @~/mlprep/abalone.csv.gz FILE_FORMAT`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = Dialect{}.CopyCSV(context.Background(), db, rawRef, "abalone.csv", warehouse.RawSchema,
		warehouse.CSVOptions{SkipLeadingRows: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyCSVFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("COPY INTO").WillReturnError(fmt.Errorf("Numeric value 'x' is not recognized"))

	err = Dialect{}.CopyCSV(context.Background(), db, rawRef, "s3://b/k.csv", warehouse.RawSchema, warehouse.CSVOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSQLExecution, errors.GetErrorCode(err))
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Account:   "xy12345.us-east-1",
		Username:  "loader",
		Password:  "secret",
		Warehouse: "LOAD_WH",
	}

	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing account", mutate: func(c *Config) { c.Account = "" }, errorMsg: "account is required"},
		{name: "missing username", mutate: func(c *Config) { c.Username = "" }, errorMsg: "username is required"},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, errorMsg: "password is required"},
		{name: "missing warehouse", mutate: func(c *Config) { c.Warehouse = "" }, errorMsg: "warehouse is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
		})
	}
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(Config{
		Account:   "xy12345.us-east-1",
		Username:  "loader",
		Password:  "secret",
		Warehouse: "LOAD_WH",
		Role:      "LOADER",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "loader")
	assert.Contains(t, dsn, "xy12345")
	assert.Contains(t, dsn, "warehouse=LOAD_WH")
	assert.NotContains(t, dsn, "database=")
}
