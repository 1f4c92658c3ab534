// Package validation checks connector configuration before a job is
// submitted. Every function here is pure: it reads a spec, never mutates
// it, and returns every problem it finds in one pass so a user can fix a
// whole form at once.
package validation

import (
	"regexp"
	"strings"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/metrics"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/google/uuid"
)

// Failure is one problem with a configuration, attributed to the field the
// user has to change.
type Failure struct {
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (f Failure) String() string {
	return f.Field + ": " + f.Message
}

// Failures is the ordered result of a validation pass.
type Failures []Failure

// Fields returns the attributed field of each failure, in order.
func (fs Failures) Fields() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Field
	}
	return out
}

// Messages returns the message of each failure, in order.
func (fs Failures) Messages() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Message
	}
	return out
}

// Err returns nil when there are no failures and otherwise a single
// ErrorTypeValidation error listing all of them.
func (fs Failures) Err() error {
	if len(fs) == 0 {
		return nil
	}
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return nebulaerrors.New(nebulaerrors.ErrorTypeValidation, strings.Join(parts, "; ")).
		WithDetail("failures", []Failure(fs))
}

// Record counts the failures in metrics and returns them unchanged.
func (fs Failures) Record() Failures {
	for _, f := range fs {
		metrics.ValidationFailures.WithLabelValues(f.Field).Inc()
	}
	return fs
}

// Database name failure messages.
const (
	MsgDatabaseRequired  = "Database Name must be specified."
	MsgDatabaseCharset   = "Database name can only include letters, numbers and hyphen characters."
	MsgDatabaseLowercase = "Database name must be in lowercase."
	MsgDatabaseFirstChar = "Database name's first character can only be an alphabet."
	MsgDatabaseLastChar  = "Database name's last character can only be a letter or a number."
	MsgDatabaseTooShort  = "Database name should be at least 4 letters."
	MsgDatabaseTooLong   = "Database name cannot be more than 63 characters."
	MsgDatabaseUUID      = "Database name cannot contain a UUID."
)

const (
	minDatabaseNameLength = 4
	maxDatabaseNameLength = 63
	canonicalUUIDLength   = 36
)

var (
	identifierPattern   = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	databaseCharPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

// IsIdentifier reports whether s follows the reference-name grammar:
// non-empty, letters, digits, '_', '-' and '.'.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate checks the connection settings of spec.
func Validate(spec connection.Spec) Failures {
	var out Failures
	out = append(out, validateReferenceName(spec)...)
	out = append(out, validateServiceAccountType(spec)...)
	out = append(out, validateDatabaseName(spec)...)
	return out
}

func validateReferenceName(spec connection.Spec) Failures {
	if spec.IsDeferred(connection.FieldReferenceName) {
		return nil
	}
	if !IsIdentifier(spec.ReferenceName) {
		return Failures{{
			Message: "Invalid reference name '" + spec.ReferenceName +
				"'. Supported characters are: letters, numbers, and '_', '-', '.'.",
			Field: connection.FieldReferenceName,
		}}
	}
	return nil
}

func validateServiceAccountType(spec connection.Spec) Failures {
	if spec.IsDeferred(connection.FieldServiceAccountType) || spec.ServiceAccountType == "" {
		return nil
	}
	if !spec.ServiceAccountType.Valid() {
		return Failures{{
			Message: "Service account type must be one of '" + string(connection.AccountTypeFilePath) +
				"' or '" + string(connection.AccountTypeJSON) + "'.",
			Field: connection.FieldServiceAccountType,
		}}
	}
	return nil
}

func validateDatabaseName(spec connection.Spec) Failures {
	if spec.IsDeferred(connection.FieldDatabaseName) {
		return nil
	}
	return DatabaseName(spec.DatabaseName())
}

// DatabaseName checks a resolved database name against the Firestore
// naming rules. The default database sentinel is always accepted. Each
// violated rule yields its own failure.
func DatabaseName(name string) Failures {
	fail := func(msg string) Failure {
		return Failure{Message: msg, Field: connection.FieldDatabaseName}
	}

	if name == "" {
		return Failures{fail(MsgDatabaseRequired)}
	}
	if name == connection.DefaultDatabase {
		return nil
	}

	var out Failures
	if !databaseCharPattern.MatchString(name) {
		out = append(out, fail(MsgDatabaseCharset))
	}
	if name != strings.ToLower(name) {
		out = append(out, fail(MsgDatabaseLowercase))
	}
	if !isASCIILetter(name[0]) {
		out = append(out, fail(MsgDatabaseFirstChar))
	}
	if last := name[len(name)-1]; !isASCIILetter(last) && !isASCIIDigit(last) {
		out = append(out, fail(MsgDatabaseLastChar))
	}
	if len(name) < minDatabaseNameLength {
		out = append(out, fail(MsgDatabaseTooShort))
	}
	if len(name) > maxDatabaseNameLength {
		out = append(out, fail(MsgDatabaseTooLong))
	}
	if isCanonicalUUID(name) {
		out = append(out, fail(MsgDatabaseUUID))
	}
	return out
}

// isCanonicalUUID accepts only the 36-character hyphenated form;
// uuid.Parse alone also takes the urn, braced and bare-hex forms.
func isCanonicalUUID(s string) bool {
	if len(s) != canonicalUUIDLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
