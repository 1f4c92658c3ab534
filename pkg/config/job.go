package config

import (
	"strings"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/logger"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// JobConfig is a job file: one connection and at most one source and one
// sink section. Every value is kept as written so that macros survive
// until the spec is built.
type JobConfig struct {
	Name       string           `yaml:"name"`
	Connection ConnectionConfig `yaml:"connection"`
	Source     *SourceConfig    `yaml:"source,omitempty"`
	Sink       *SinkConfig      `yaml:"sink,omitempty"`
	Logging    logger.Config    `yaml:"logging"`
}

// ConnectionConfig is the connection section of a job file.
type ConnectionConfig struct {
	ReferenceName      string `yaml:"referenceName"`
	Project            string `yaml:"project"`
	DatabaseName       string `yaml:"databaseName"`
	ServiceAccountType string `yaml:"serviceAccountType"`
	ServiceFilePath    string `yaml:"serviceFilePath"`
	ServiceAccountJSON string `yaml:"serviceAccountJSON"`
}

// SourceConfig is the source section of a job file.
type SourceConfig struct {
	Collection        string    `yaml:"collection"`
	QueryMode         string    `yaml:"queryMode"`
	PullDocuments     string    `yaml:"pullDocuments"`
	SkipDocuments     string    `yaml:"skipDocuments"`
	Filters           string    `yaml:"filters"`
	Fields            FieldList `yaml:"fields"`
	IncludeDocumentID string    `yaml:"includeDocumentId"`
	IDAlias           string    `yaml:"idAlias"`
}

// FieldList is a list of field names. It is written either as a YAML
// sequence or as one comma-separated string, which is how a single macro
// standing for the whole list is written.
type FieldList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *FieldList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = splitFields(s)
		return nil
	}
	var fields []string
	if err := value.Decode(&fields); err != nil {
		return err
	}
	*l = fields
	return nil
}

// HasMacro reports whether any element is a macro.
func (l FieldList) HasMacro() bool {
	for _, f := range l {
		if IsMacro(f) {
			return true
		}
	}
	return false
}

func splitFields(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if IsMacro(s) {
		return []string{s}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// SinkConfig is the sink section of a job file.
type SinkConfig struct {
	Collection string `yaml:"collection"`
	IDType     string `yaml:"idType"`
	BatchSize  string `yaml:"batchSize"`
}

// LoadJob reads a job file.
func LoadJob(path string) (*JobConfig, error) {
	var job JobConfig
	if err := Load(path, &job); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to load job file").
			WithDetail("path", path)
	}
	return &job, nil
}

// ParseJob parses a job file already in memory.
func ParseJob(data []byte) (*JobConfig, error) {
	var job JobConfig
	if err := Parse(data, &job); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to parse job file")
	}
	return &job, nil
}

// Spec builds the connection spec. Macro values are kept verbatim and
// their fields recorded as deferred.
func (j *JobConfig) Spec() connection.Spec {
	c := j.Connection
	macros := connection.NewFieldSet()
	mark := func(field, value string) string {
		if IsMacro(value) {
			macros[field] = struct{}{}
		}
		return value
	}

	return connection.Spec{
		ReferenceName:          mark(connection.FieldReferenceName, c.ReferenceName),
		ProjectID:              mark(connection.FieldProject, strings.TrimSpace(c.Project)),
		Database:               mark(connection.FieldDatabaseName, c.DatabaseName),
		ServiceAccountType:     connection.AccountType(mark(connection.FieldServiceAccountType, c.ServiceAccountType)),
		ServiceAccountFilePath: mark(connection.FieldServiceAccountFilePath, c.ServiceFilePath),
		ServiceAccountJSON:     mark(connection.FieldServiceAccountJSON, c.ServiceAccountJSON),
		Macros:                 macros,
	}
}

// SourceSpec builds the read spec. It fails when the job has no source
// section or a literal value has the wrong type.
func (j *JobConfig) SourceSpec() (connection.SourceSpec, error) {
	if j.Source == nil {
		return connection.SourceSpec{}, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "job has no source section")
	}
	s := j.Source
	spec := connection.SourceSpec{
		Spec:          j.Spec(),
		Collection:    s.Collection,
		QueryMode:     connection.QueryMode(s.QueryMode),
		PullDocuments: s.PullDocuments,
		SkipDocuments: s.SkipDocuments,
		Filters:       s.Filters,
		Fields:        []string(s.Fields),
		IDAlias:       s.IDAlias,
	}

	for field, value := range map[string]string{
		connection.FieldCollection:    s.Collection,
		connection.FieldQueryMode:     s.QueryMode,
		connection.FieldPullDocuments: s.PullDocuments,
		connection.FieldSkipDocuments: s.SkipDocuments,
		connection.FieldFilters:       s.Filters,
		connection.FieldIDAlias:       s.IDAlias,
	} {
		if IsMacro(value) {
			spec.Macros[field] = struct{}{}
		}
	}
	if s.Fields.HasMacro() {
		spec.Macros[connection.FieldSchema] = struct{}{}
	}

	switch v := strings.TrimSpace(s.IncludeDocumentID); {
	case v == "":
	case IsMacro(v):
		spec.Macros[connection.FieldIncludeDocumentID] = struct{}{}
	default:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return spec, badValue(connection.FieldIncludeDocumentID, v, err)
		}
		spec.IncludeDocumentID = b
	}
	return spec, nil
}

// SinkSpec builds the write spec. It fails when the job has no sink
// section or a literal value has the wrong type.
func (j *JobConfig) SinkSpec() (connection.SinkSpec, error) {
	if j.Sink == nil {
		return connection.SinkSpec{}, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "job has no sink section")
	}
	s := j.Sink
	spec := connection.SinkSpec{
		Spec:       j.Spec(),
		Collection: s.Collection,
		IDType:     connection.IDType(s.IDType),
	}
	if IsMacro(s.Collection) {
		spec.Macros[connection.FieldCollection] = struct{}{}
	}
	if IsMacro(s.IDType) {
		spec.Macros[connection.FieldIDType] = struct{}{}
	}

	switch v := strings.TrimSpace(s.BatchSize); {
	case v == "":
	case IsMacro(v):
		spec.Macros[connection.FieldBatchSize] = struct{}{}
	default:
		n, err := cast.ToIntE(v)
		if err != nil {
			return spec, badValue(connection.FieldBatchSize, v, err)
		}
		spec.BatchSize = n
	}
	return spec, nil
}

func badValue(field, value string, err error) error {
	return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid value").
		WithDetail("field", field).
		WithDetail("value", value)
}
