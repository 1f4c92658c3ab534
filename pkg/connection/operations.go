package connection

// Operation field names.
const (
	FieldCollection        = "collection"
	FieldQueryMode         = "queryMode"
	FieldPullDocuments     = "pullDocuments"
	FieldSkipDocuments     = "skipDocuments"
	FieldFilters           = "customQuery"
	FieldSchema            = "schema"
	FieldIncludeDocumentID = "includeDocumentId"
	FieldIDAlias           = "idAlias"
	FieldIDType            = "idType"
	FieldBatchSize         = "batchSize"
)

// QueryMode selects how the source builds its document query.
type QueryMode string

const (
	QueryModeBasic    QueryMode = "Basic"
	QueryModeAdvanced QueryMode = "Advanced"
)

// IDType selects how the sink names the documents it writes.
type IDType string

const (
	IDTypeAutoGenerated IDType = "AutoGeneratedId"
	IDTypeCustom        IDType = "CustomId"
)

const (
	DefaultIDAlias   = "__id__"
	DefaultBatchSize = 25
	// MaxBatchSize is the largest write batch Firestore accepts.
	MaxBatchSize = 500
)

// SourceSpec configures a batch read. Everything beyond the embedded Spec is
// handed to the read executor untouched.
type SourceSpec struct {
	Spec              `yaml:",inline"`
	Collection        string    `yaml:"collection"`
	QueryMode         QueryMode `yaml:"queryMode"`
	PullDocuments     string    `yaml:"pullDocuments"`
	SkipDocuments     string    `yaml:"skipDocuments"`
	Filters           string    `yaml:"filters"`
	Fields            []string  `yaml:"fields"`
	IncludeDocumentID bool      `yaml:"includeDocumentId"`
	IDAlias           string    `yaml:"idAlias"`
}

// Mode returns the query mode, Basic when unset.
func (s SourceSpec) Mode() QueryMode {
	if s.QueryMode == "" {
		return QueryModeBasic
	}
	return s.QueryMode
}

// Alias returns the document id field name, DefaultIDAlias when unset.
func (s SourceSpec) Alias() string {
	if s.IDAlias == "" {
		return DefaultIDAlias
	}
	return s.IDAlias
}

// SinkSpec configures a batch write.
type SinkSpec struct {
	Spec       `yaml:",inline"`
	Collection string `yaml:"collection"`
	IDType     IDType `yaml:"idType" validate:"omitempty,oneof=AutoGeneratedId CustomId"`
	BatchSize  int    `yaml:"batchSize" validate:"omitempty,min=1,max=500"`
}

// IDStrategy returns the id type, AutoGeneratedId when unset.
func (s SinkSpec) IDStrategy() IDType {
	if s.IDType == "" {
		return IDTypeAutoGenerated
	}
	return s.IDType
}

// Batch returns the write batch size, DefaultBatchSize when unset.
func (s SinkSpec) Batch() int {
	if s.BatchSize == 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}
