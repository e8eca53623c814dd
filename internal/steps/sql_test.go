package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mlprep/internal/warehouse"
)

var (
	testSchema = warehouse.Schema{{Name: "Sex"}, {Name: "Rings"}}
	rawRef     = warehouse.TableRef{Project: "ml-project", Dataset: "ml_data", Table: "abalone_raw"}
)

func TestSplitTableSQL(t *testing.T) {
	got := SplitTableSQL(fakeDialect{}, rawRef, rawRef.Sibling("dataset"), testSchema)

	expected := `CREATE OR REPLACE TABLE "ml-project"."ml_data"."dataset" AS
SELECT
  f."Sex",
  f."Rings",
  CASE BUCKET(f)
    WHEN 9 THEN 'TEST'
    WHEN 8 THEN 'VALIDATE'
    ELSE 'TRAIN'
  END AS "split_col"
FROM "ml-project"."ml_data"."abalone_raw" f`
	assert.Equal(t, expected, got)
}

func TestTestViewSQL(t *testing.T) {
	got := TestViewSQL(fakeDialect{}, rawRef.Sibling("dataset"), rawRef.Sibling("dataset_test"), testSchema)

	expected := `CREATE OR REPLACE VIEW "ml-project"."ml_data"."dataset_test" AS
SELECT
  f."Sex",
  f."Rings"
FROM "ml-project"."ml_data"."dataset" f
WHERE f."split_col" = 'TEST'`
	assert.Equal(t, expected, got)
}

func TestTestViewExcludesSplitColumn(t *testing.T) {
	got := TestViewSQL(fakeDialect{}, rawRef.Sibling("dataset"), rawRef.Sibling("dataset_test"), warehouse.RawSchema)

	for _, name := range warehouse.RawSchema.Names() {
		assert.Contains(t, got, `f."`+name+`"`)
	}
	assert.NotContains(t, got, `f."split_col",`)
}
