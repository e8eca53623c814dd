package warehouse

import (
	"fmt"
	"strings"

	"mlprep/pkg/errors"
)

// URIScheme prefixes table references exchanged between pipeline steps.
const URIScheme = "warehouse://"

// DatasetRef names a dataset (schema) inside a project (database or catalog).
type DatasetRef struct {
	Project string
	Dataset string
}

// String returns "project.dataset".
func (d DatasetRef) String() string {
	return d.Project + "." + d.Dataset
}

// Table returns a reference to a table inside the dataset.
func (d DatasetRef) Table(name string) TableRef {
	return TableRef{Project: d.Project, Dataset: d.Dataset, Table: name}
}

// TableRef is a fully qualified table or view name.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// String returns the plain qualified name "project.dataset.table".
func (t TableRef) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// URI returns the warehouse-scheme form "warehouse://project.dataset.table".
func (t TableRef) URI() string {
	return URIScheme + t.String()
}

// DatasetRef returns the dataset that holds the table.
func (t TableRef) DatasetRef() DatasetRef {
	return DatasetRef{Project: t.Project, Dataset: t.Dataset}
}

// Sibling returns a reference to another table in the same dataset.
func (t TableRef) Sibling(name string) TableRef {
	return t.DatasetRef().Table(name)
}

// Validate checks that every component is present and free of dots.
func (t TableRef) Validate() error {
	for _, part := range []struct{ name, value string }{
		{"project", t.Project},
		{"dataset", t.Dataset},
		{"table", t.Table},
	} {
		if part.value == "" {
			return errors.New(errors.ErrCodeRequiredField, fmt.Sprintf("Table reference is missing the %s", part.name)).
				WithContext("ref", t.String())
		}
		if strings.Contains(part.value, ".") {
			return errors.ValidationError(part.name, part.value, "must not contain '.'")
		}
	}
	return nil
}

// ParseURI parses "warehouse://project.dataset.table" into a TableRef. Any
// "scheme://" prefix is accepted and the bare qualified name is accepted as
// well. The remainder must hold exactly three non-empty dot-separated
// segments.
func ParseURI(uri string) (TableRef, error) {
	name := strings.TrimSpace(uri)
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}

	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return TableRef{}, errors.New(errors.ErrCodeInvalidURI,
			fmt.Sprintf("Table URI must have exactly 3 dot-separated segments, got %d", len(parts))).
			WithContext("uri", uri).
			WithSuggestions("Use the form warehouse://project.dataset.table")
	}
	for i, p := range parts {
		if p == "" {
			return TableRef{}, errors.New(errors.ErrCodeInvalidURI,
				fmt.Sprintf("Table URI segment %d is empty", i+1)).
				WithContext("uri", uri)
		}
	}

	return TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}
