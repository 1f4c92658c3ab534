package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/go-playground/validator/v10"
)

var structValidator = newStructValidator()

// newStructValidator reports struct-tag failures under the yaml names,
// which are also the property map keys.
func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateSource checks a read configuration.
func ValidateSource(spec connection.SourceSpec) Failures {
	out := Validate(spec.Spec)
	out = append(out, validateCollection(spec.Spec, spec.Collection)...)

	if !spec.IsDeferred(connection.FieldQueryMode) {
		switch spec.Mode() {
		case connection.QueryModeBasic, connection.QueryModeAdvanced:
		default:
			out = append(out, Failure{
				Message: fmt.Sprintf("Query mode must be one of '%s' or '%s'.",
					connection.QueryModeBasic, connection.QueryModeAdvanced),
				Field: connection.FieldQueryMode,
			})
		}
	}

	if !spec.IsDeferred(connection.FieldSchema) {
		for _, field := range spec.Fields {
			if !IsIdentifier(field) {
				out = append(out, Failure{
					Message: fmt.Sprintf("Field name '%s' can only include letters, numbers and '_', '-', '.'.", field),
					Field:   connection.FieldSchema,
				})
			}
		}
	}

	if spec.IncludeDocumentID && !spec.IsDeferred(connection.FieldIDAlias) && !IsIdentifier(spec.Alias()) {
		out = append(out, Failure{
			Message: fmt.Sprintf("Document id alias '%s' can only include letters, numbers and '_', '-', '.'.", spec.IDAlias),
			Field:   connection.FieldIDAlias,
		})
	}
	return out
}

// ValidateSink checks a write configuration.
func ValidateSink(spec connection.SinkSpec) Failures {
	out := Validate(spec.Spec)
	out = append(out, validateCollection(spec.Spec, spec.Collection)...)

	err := structValidator.Struct(spec)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if spec.IsDeferred(field) {
			continue
		}
		out = append(out, Failure{Message: sinkMessage(fe), Field: field})
	}
	return out
}

func sinkMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case connection.FieldBatchSize:
		return fmt.Sprintf("Batch size must be between 1 and %d.", connection.MaxBatchSize)
	case connection.FieldIDType:
		return fmt.Sprintf("Document id type must be one of '%s' or '%s'.",
			connection.IDTypeAutoGenerated, connection.IDTypeCustom)
	default:
		return fmt.Sprintf("Invalid value for '%s' (%s).", fe.Field(), fe.Tag())
	}
}

func validateCollection(spec connection.Spec, collection string) Failures {
	if spec.IsDeferred(connection.FieldCollection) || collection != "" {
		return nil
	}
	return Failures{{Message: "Collection must be specified.", Field: connection.FieldCollection}}
}
