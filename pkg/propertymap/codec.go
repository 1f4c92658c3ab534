package propertymap

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/credentials"
	"github.com/ajitpratap0/nebula-firestore/pkg/metrics"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/spf13/cast"
)

// Wire keys. Changing any of them, or what they mean, requires bumping
// CodecVersion.
const (
	KeyCodecVersion       = "codecVersion"
	KeyProject            = connection.FieldProject
	KeyDatabaseName       = connection.FieldDatabaseName
	KeyServiceAccountType = connection.FieldServiceAccountType
	KeyServiceFilePath    = connection.FieldServiceAccountFilePath
	KeyServiceAccountJSON = connection.FieldServiceAccountJSON

	KeyCollection        = connection.FieldCollection
	KeyQueryMode         = connection.FieldQueryMode
	KeyPullDocuments     = connection.FieldPullDocuments
	KeySkipDocuments     = connection.FieldSkipDocuments
	KeyCustomQuery       = connection.FieldFilters
	KeySchema            = connection.FieldSchema
	KeyIncludeDocumentID = connection.FieldIncludeDocumentID
	KeyIDAlias           = connection.FieldIDAlias
	KeyIDType            = connection.FieldIDType
	KeyBatchSize         = connection.FieldBatchSize
)

// CodecVersion is written into every map and checked on decode.
const CodecVersion = "1"

// ListDelimiter joins list values. Field names follow the identifier
// grammar and cannot contain it.
const ListDelimiter = ","

// ConnectionParams is what a worker needs to open a connection.
type ConnectionParams struct {
	Project            string
	DatabaseName       string
	AccountType        connection.AccountType
	ServiceFilePath    string
	ServiceAccountJSON string
}

// IsServiceAccountFilePath reports whether the file path is the
// authoritative credential material.
func (p ConnectionParams) IsServiceAccountFilePath() bool {
	return p.AccountType == connection.AccountTypeFilePath
}

// CredentialSource returns the credential strategy the params select. An
// unset account type or a missing material key selects ambient resolution.
func (p ConnectionParams) CredentialSource() credentials.Source {
	switch p.AccountType {
	case connection.AccountTypeJSON:
		return credentials.FromMaterial(p.ServiceAccountJSON, false)
	case connection.AccountTypeFilePath:
		return credentials.FromMaterial(p.ServiceFilePath, true)
	default:
		return credentials.Ambient{}
	}
}

// NeedsProjectDetection reports whether the worker has to find the project
// in its own environment.
func (p ConnectionParams) NeedsProjectDetection() bool {
	return p.Project == ""
}

// Connection returns the connection part of decoded parameters. It is
// promoted to SourceParams and SinkParams.
func (p ConnectionParams) Connection() ConnectionParams {
	return p
}

// SourceParams are the decoded read parameters.
type SourceParams struct {
	ConnectionParams
	Collection        string
	QueryMode         connection.QueryMode
	PullDocuments     string
	SkipDocuments     string
	Filters           string
	Fields            []string
	IncludeDocumentID bool
	IDAlias           string
}

// SinkParams are the decoded write parameters.
type SinkParams struct {
	ConnectionParams
	Collection string
	IDType     connection.IDType
	BatchSize  int
}

// EncodeConnection writes the connection keys for spec.
func EncodeConnection(spec connection.Spec) (*Map, error) {
	for _, field := range []string{
		connection.FieldProject,
		connection.FieldDatabaseName,
		connection.FieldServiceAccountType,
	} {
		if spec.IsDeferred(field) {
			return nil, unresolved(field)
		}
	}

	project := spec.ProjectID
	if project == connection.AutoDetect {
		project = ""
	}

	m := New().
		Set(KeyCodecVersion, CodecVersion).
		Set(KeyProject, project).
		Set(KeyDatabaseName, spec.DatabaseName()).
		Set(KeyServiceAccountType, string(spec.AccountType()))

	switch spec.AccountType() {
	case connection.AccountTypeFilePath:
		if spec.IsDeferred(connection.FieldServiceAccountFilePath) {
			return nil, unresolved(connection.FieldServiceAccountFilePath)
		}
		m.SetIfNotEmpty(KeyServiceFilePath, spec.FilePath())
	case connection.AccountTypeJSON:
		if spec.IsDeferred(connection.FieldServiceAccountJSON) {
			return nil, unresolved(connection.FieldServiceAccountJSON)
		}
		m.SetIfNotEmpty(KeyServiceAccountJSON, spec.JSON())
	}
	return m, nil
}

// EncodeSource writes the keys a read worker needs.
func EncodeSource(spec connection.SourceSpec) (*Map, error) {
	m, err := EncodeConnection(spec.Spec)
	if err != nil {
		return nil, err
	}
	if err := rejectDeferred(spec.Spec, sourceFields); err != nil {
		return nil, err
	}

	m.Set(KeyCollection, spec.Collection).
		Set(KeyQueryMode, string(spec.Mode())).
		Set(KeyPullDocuments, spec.PullDocuments).
		Set(KeySkipDocuments, spec.SkipDocuments).
		Set(KeyCustomQuery, spec.Filters).
		Set(KeySchema, strings.Join(spec.Fields, ListDelimiter)).
		Set(KeyIncludeDocumentID, strconv.FormatBool(spec.IncludeDocumentID)).
		Set(KeyIDAlias, spec.Alias())
	return m, nil
}

// EncodeSink writes the keys a write worker needs.
func EncodeSink(spec connection.SinkSpec) (*Map, error) {
	m, err := EncodeConnection(spec.Spec)
	if err != nil {
		return nil, err
	}
	if err := rejectDeferred(spec.Spec, sinkFields); err != nil {
		return nil, err
	}

	m.Set(KeyCollection, spec.Collection).
		Set(KeyIDType, string(spec.IDStrategy())).
		Set(KeyBatchSize, strconv.Itoa(spec.Batch()))
	return m, nil
}

// DecodeConnection reads the connection keys. A missing required key means
// the map was written by an incompatible encoder and is never defaulted.
func DecodeConnection(m *Map) (ConnectionParams, error) {
	var p ConnectionParams

	version, err := required(m, KeyCodecVersion)
	if err != nil {
		return p, err
	}
	if version != CodecVersion {
		return p, mismatch(KeyCodecVersion, "codec version mismatch").
			WithDetail("got", version).
			WithDetail("want", CodecVersion)
	}

	if p.Project, err = required(m, KeyProject); err != nil {
		return p, err
	}
	if p.DatabaseName, err = required(m, KeyDatabaseName); err != nil {
		return p, err
	}
	if p.DatabaseName == "" {
		p.DatabaseName = connection.DefaultDatabase
	}

	accountType, err := required(m, KeyServiceAccountType)
	if err != nil {
		return p, err
	}
	p.AccountType = connection.AccountType(accountType)
	if p.AccountType != "" && !p.AccountType.Valid() {
		return p, mismatch(KeyServiceAccountType, "unknown service account type").
			WithDetail("got", accountType)
	}

	p.ServiceFilePath = m.Get(KeyServiceFilePath)
	p.ServiceAccountJSON = m.Get(KeyServiceAccountJSON)
	if p.AccountType == "" {
		for _, key := range []string{KeyServiceFilePath, KeyServiceAccountJSON} {
			if m.Has(key) {
				return p, mismatch(key, "credential material without a service account type")
			}
		}
	}
	return p, nil
}

// DecodeSource reads the keys written by EncodeSource.
func DecodeSource(m *Map) (SourceParams, error) {
	var p SourceParams
	var err error

	if p.ConnectionParams, err = DecodeConnection(m); err != nil {
		return p, err
	}
	if p.Collection, err = required(m, KeyCollection); err != nil {
		return p, err
	}

	mode, err := required(m, KeyQueryMode)
	if err != nil {
		return p, err
	}
	p.QueryMode = connection.QueryMode(mode)

	if p.PullDocuments, err = required(m, KeyPullDocuments); err != nil {
		return p, err
	}
	if p.SkipDocuments, err = required(m, KeySkipDocuments); err != nil {
		return p, err
	}
	if p.Filters, err = required(m, KeyCustomQuery); err != nil {
		return p, err
	}

	schema, err := required(m, KeySchema)
	if err != nil {
		return p, err
	}
	p.Fields = SplitList(schema)

	include, err := required(m, KeyIncludeDocumentID)
	if err != nil {
		return p, err
	}
	if p.IncludeDocumentID, err = strictBool(include); err != nil {
		return p, mismatch(KeyIncludeDocumentID, "value is not a boolean").WithDetail("got", include)
	}

	if p.IDAlias, err = required(m, KeyIDAlias); err != nil {
		return p, err
	}
	return p, nil
}

// DecodeSink reads the keys written by EncodeSink.
func DecodeSink(m *Map) (SinkParams, error) {
	var p SinkParams
	var err error

	if p.ConnectionParams, err = DecodeConnection(m); err != nil {
		return p, err
	}
	if p.Collection, err = required(m, KeyCollection); err != nil {
		return p, err
	}

	idType, err := required(m, KeyIDType)
	if err != nil {
		return p, err
	}
	p.IDType = connection.IDType(idType)

	batch, err := required(m, KeyBatchSize)
	if err != nil {
		return p, err
	}
	if p.BatchSize, err = strictInt(batch); err != nil || p.BatchSize <= 0 {
		return p, mismatch(KeyBatchSize, "value is not a positive integer").WithDetail("got", batch)
	}
	return p, nil
}

// SplitList reverses the list encoding: "" is an empty list.
func SplitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ListDelimiter)
}

// strictBool accepts only the text FormatBool writes.
func strictBool(s string) (bool, error) {
	b, err := cast.ToBoolE(s)
	if err != nil {
		return false, err
	}
	if strconv.FormatBool(b) != s {
		return false, nebulaerrors.Newf(nebulaerrors.ErrorTypeCodec, "%q is not canonical", s)
	}
	return b, nil
}

// strictInt accepts only the decimal text Itoa writes, so "010" and "0x10"
// are rejected.
func strictInt(s string) (int, error) {
	n, err := cast.ToIntE(s)
	if err != nil {
		return 0, err
	}
	if strconv.Itoa(n) != s {
		return 0, nebulaerrors.Newf(nebulaerrors.ErrorTypeCodec, "%q is not canonical", s)
	}
	return n, nil
}

func required(m *Map, key string) (string, error) {
	v, ok := m.Lookup(key)
	if !ok {
		return "", mismatch(key, "required property is missing")
	}
	return v, nil
}

func mismatch(key, message string) *nebulaerrors.Error {
	metrics.CodecMismatches.WithLabelValues(key).Inc()
	return nebulaerrors.New(nebulaerrors.ErrorTypeCodec, message).WithDetail("key", key)
}

var (
	sourceFields = []string{
		connection.FieldCollection,
		connection.FieldQueryMode,
		connection.FieldPullDocuments,
		connection.FieldSkipDocuments,
		connection.FieldFilters,
		connection.FieldSchema,
		connection.FieldIncludeDocumentID,
		connection.FieldIDAlias,
	}
	sinkFields = []string{
		connection.FieldCollection,
		connection.FieldIDType,
		connection.FieldBatchSize,
	}
)

// rejectDeferred fails on the first field in fields that is still a macro.
// Every key a source or sink map carries is required on decode.
func rejectDeferred(spec connection.Spec, fields []string) error {
	for _, field := range fields {
		if spec.IsDeferred(field) {
			return unresolved(field)
		}
	}
	return nil
}

func unresolved(field string) error {
	return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "field is still a macro and cannot be encoded").
		WithDetail("field", field)
}
