package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlprep/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected TableRef
		wantErr  bool
	}{
		{
			name:     "warehouse scheme",
			uri:      "warehouse://ml-project.ml_data.abalone_raw",
			expected: TableRef{Project: "ml-project", Dataset: "ml_data", Table: "abalone_raw"},
		},
		{
			name:     "foreign scheme prefix is stripped",
			uri:      "bq://ml-project.ml_data.abalone_raw",
			expected: TableRef{Project: "ml-project", Dataset: "ml_data", Table: "abalone_raw"},
		},
		{
			name:     "bare qualified name",
			uri:      "p.d.t",
			expected: TableRef{Project: "p", Dataset: "d", Table: "t"},
		},
		{
			name:     "surrounding whitespace",
			uri:      "  warehouse://p.d.t\n",
			expected: TableRef{Project: "p", Dataset: "d", Table: "t"},
		},
		{name: "two segments", uri: "warehouse://p.d", wantErr: true},
		{name: "four segments", uri: "warehouse://p.d.t.x", wantErr: true},
		{name: "one segment", uri: "abalone_raw", wantErr: true},
		{name: "empty", uri: "", wantErr: true},
		{name: "empty segment", uri: "warehouse://p..t", wantErr: true},
		{name: "trailing dot", uri: "warehouse://p.d.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidURI, errors.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}

func TestTableRefRoundTrip(t *testing.T) {
	ref := TableRef{Project: "ml-project", Dataset: "ml_data", Table: "dataset"}

	assert.Equal(t, "ml-project.ml_data.dataset", ref.String())
	assert.Equal(t, "warehouse://ml-project.ml_data.dataset", ref.URI())

	parsed, err := ParseURI(ref.URI())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestTableRefHelpers(t *testing.T) {
	ref := DatasetRef{Project: "p", Dataset: "d"}.Table("raw")

	assert.Equal(t, "p.d", ref.DatasetRef().String())
	assert.Equal(t, TableRef{Project: "p", Dataset: "d", Table: "dataset_test"}, ref.Sibling("dataset_test"))
}

func TestTableRefValidate(t *testing.T) {
	assert.NoError(t, TableRef{Project: "p", Dataset: "d", Table: "t"}.Validate())

	err := TableRef{Project: "p", Table: "t"}.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRequiredField, errors.GetErrorCode(err))

	err = TableRef{Project: "p", Dataset: "d", Table: "a.b"}.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
}

func TestSchema(t *testing.T) {
	assert.Len(t, RawSchema, 9)
	assert.Equal(t, "Sex", RawSchema.Names()[0])
	assert.Equal(t, FieldString, RawSchema[0].Type)
	for _, c := range RawSchema[1:] {
		assert.Equal(t, FieldNumeric, c.Type, c.Name)
	}
	assert.True(t, RawSchema.Has("Rings"))
	assert.False(t, RawSchema.Has("rings"))
}
