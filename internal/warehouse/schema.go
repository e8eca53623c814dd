package warehouse

// FieldType is a warehouse-neutral column type.
type FieldType string

const (
	FieldString  FieldType = "STRING"
	FieldNumeric FieldType = "NUMERIC"
)

// Column is one field of a fixed load schema.
type Column struct {
	Name string
	Type FieldType
}

// Schema is an ordered column list. Order matters for positional CSV loads.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the schema contains a column with the given name.
func (s Schema) Has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// RawSchema is the fixed layout of the abalone CSV blob.
var RawSchema = Schema{
	{Name: "Sex", Type: FieldString},
	{Name: "Length", Type: FieldNumeric},
	{Name: "Diameter", Type: FieldNumeric},
	{Name: "Height", Type: FieldNumeric},
	{Name: "Whole_weight", Type: FieldNumeric},
	{Name: "Shucked_weight", Type: FieldNumeric},
	{Name: "Viscera_weight", Type: FieldNumeric},
	{Name: "Shell_weight", Type: FieldNumeric},
	{Name: "Rings", Type: FieldNumeric},
}

// SplitColumn holds the TRAIN/VALIDATE/TEST label in the split table.
const SplitColumn = "split_col"

// Partition labels written to SplitColumn.
const (
	PartitionTrain    = "TRAIN"
	PartitionValidate = "VALIDATE"
	PartitionTest     = "TEST"
)

// Hash buckets that select the non-TRAIN partitions. The bucket is the row
// content hash modulo BucketCount.
const (
	BucketCount    = 10
	TestBucket     = 9
	ValidateBucket = 8
)
