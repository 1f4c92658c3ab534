// Package connection describes where and how the connector reaches a
// Firestore database. A Spec is built once on the client from user input
// and is never mutated afterwards; every accessor applies the defaulting
// rules so that validation, encoding and the worker agree on what an empty
// or deferred field means.
package connection

import (
	"context"

	"github.com/ajitpratap0/nebula-firestore/pkg/credentials"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
)

// Field names. They double as property map keys and as the attribution
// attached to validation failures.
const (
	FieldReferenceName          = "referenceName"
	FieldProject                = "project"
	FieldDatabaseName           = "databaseName"
	FieldServiceAccountType     = "serviceAccountType"
	FieldServiceAccountFilePath = "serviceFilePath"
	FieldServiceAccountJSON     = "serviceAccountJSON"
)

const (
	// AutoDetect asks for a value to be taken from the ambient environment.
	AutoDetect = "auto-detect"
	// DefaultDatabase is the sentinel name of a project's default database.
	DefaultDatabase = "(default)"
)

// AccountType selects which piece of credential material is authoritative.
type AccountType string

const (
	AccountTypeFilePath AccountType = "filePath"
	AccountTypeJSON     AccountType = "JSON"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountTypeFilePath || t == AccountTypeJSON
}

// FieldSet is a set of field names. Spec uses it to mark fields whose value
// is a host macro that will only be known at run time.
type FieldSet map[string]struct{}

// NewFieldSet returns a set holding names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil set is empty.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// ProjectDetector resolves the project id from the ambient environment.
type ProjectDetector func(ctx context.Context) (string, error)

// Spec is the connection-relevant part of a connector configuration.
// Empty strings mean "not set". Whether a field is deferred is recorded
// only in Macros, so an unset field and a deferred one stay distinct.
type Spec struct {
	ReferenceName          string      `yaml:"referenceName" json:"referenceName"`
	ProjectID              string      `yaml:"project" json:"project"`
	Database               string      `yaml:"databaseName" json:"databaseName"`
	ServiceAccountType     AccountType `yaml:"serviceAccountType" json:"serviceAccountType"`
	ServiceAccountFilePath string      `yaml:"serviceFilePath" json:"serviceFilePath"`
	ServiceAccountJSON     string      `yaml:"serviceAccountJSON" json:"-"`
	Macros                 FieldSet    `yaml:"-" json:"-"`
}

// IsDeferred reports whether field holds a value that is not known yet.
func (s Spec) IsDeferred(field string) bool {
	return s.Macros.Has(field)
}

// DatabaseName returns the database to connect to. An unset name becomes
// DefaultDatabase. A deferred name is always "", whatever placeholder text
// the field holds.
func (s Spec) DatabaseName() string {
	if s.IsDeferred(FieldDatabaseName) {
		return ""
	}
	if s.Database == "" {
		return DefaultDatabase
	}
	return s.Database
}

// NeedsProjectDetection reports whether the project id has to come from the
// ambient environment.
func (s Spec) NeedsProjectDetection() bool {
	if s.IsDeferred(FieldProject) {
		return false
	}
	return s.ProjectID == "" || s.ProjectID == AutoDetect
}

// TryProject returns the project id, detecting it from the environment when
// it is unset or auto-detect. It returns "" when the project is deferred or
// detection finds nothing.
func (s Spec) TryProject(ctx context.Context, detect ProjectDetector) string {
	if s.IsDeferred(FieldProject) {
		return ""
	}
	if !s.NeedsProjectDetection() {
		return s.ProjectID
	}
	if detect == nil {
		return ""
	}
	project, err := detect(ctx)
	if err != nil {
		return ""
	}
	return project
}

// Project is TryProject that fails when no project id can be found.
func (s Spec) Project(ctx context.Context, detect ProjectDetector) (string, error) {
	project := s.TryProject(ctx, detect)
	if project == "" {
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig,
			"could not detect Google Cloud project id from the environment, please specify a project id").
			WithDetail("field", FieldProject)
	}
	return project, nil
}

// AccountType returns the service account type, or "" when it is unset or deferred.
func (s Spec) AccountType() AccountType {
	if s.IsDeferred(FieldServiceAccountType) {
		return ""
	}
	return s.ServiceAccountType
}

// IsServiceAccountFilePath reports whether the file path is authoritative.
// known is false when the account type is unset or deferred.
func (s Spec) IsServiceAccountFilePath() (isFilePath, known bool) {
	t := s.AccountType()
	if t == "" {
		return false, false
	}
	return t == AccountTypeFilePath, true
}

// IsServiceAccountJSON reports whether the inline JSON is authoritative.
// known is false when the account type is unset or deferred.
func (s Spec) IsServiceAccountJSON() (isJSON, known bool) {
	t := s.AccountType()
	if t == "" {
		return false, false
	}
	return t == AccountTypeJSON, true
}

// FilePath returns the service account file path, or "" when it is unset,
// deferred or auto-detect.
func (s Spec) FilePath() string {
	if s.IsDeferred(FieldServiceAccountFilePath) {
		return ""
	}
	p := s.ServiceAccountFilePath
	if p == "" || p == AutoDetect {
		return ""
	}
	return p
}

// JSON returns the inline service account payload, or "" when it is unset or deferred.
func (s Spec) JSON() string {
	if s.IsDeferred(FieldServiceAccountJSON) {
		return ""
	}
	return s.ServiceAccountJSON
}

// ServiceAccount returns the authoritative credential material for the
// configured account type. The other field is ignored even when set.
func (s Spec) ServiceAccount() string {
	isJSON, known := s.IsServiceAccountJSON()
	if !known {
		return ""
	}
	if isJSON {
		return s.JSON()
	}
	return s.FilePath()
}

// CredentialSource returns how credentials for this spec are obtained.
func (s Spec) CredentialSource() credentials.Source {
	isFilePath, _ := s.IsServiceAccountFilePath()
	return credentials.FromMaterial(s.ServiceAccount(), isFilePath)
}

// AutoServiceAccountUnavailable reports whether the account is set to be
// auto-detected but no ambient credentials exist here. This is not a
// deployment failure: a cluster node may have credentials the validating
// host lacks. Callers use it to skip checks that need a live connection.
func (s Spec) AutoServiceAccountUnavailable(ctx context.Context, r *credentials.Resolver) bool {
	if s.AccountType() != AccountTypeFilePath || s.FilePath() != "" {
		return false
	}
	return r.AmbientUnavailable(ctx)
}
