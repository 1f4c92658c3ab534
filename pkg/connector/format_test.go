package connector

import (
	"context"
	"testing"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-firestore/pkg/propertymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatsAreRegistered(t *testing.T) {
	assert.True(t, registry.Has(SourceFormatName))
	assert.True(t, registry.Has(SinkFormatName))
}

func TestSourceFormat(t *testing.T) {
	spec := connection.SourceSpec{
		Spec:       fileSpec(),
		Collection: "users",
		Fields:     []string{"name", "age"},
	}

	f, err := SourceFormat(spec)
	require.NoError(t, err)
	assert.Equal(t, SourceFormatName, f.Name)
	assert.Equal(t, "name,age", f.Properties.Get(propertymap.KeySchema))
}

func TestSourceFormat_RejectsInvalidSpec(t *testing.T) {
	spec := connection.SourceSpec{Spec: fileSpec()}
	spec.Database = "AB"

	_, err := SourceFormat(spec)
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeValidation))
}

func TestSourceFormat_RejectsDeferredFields(t *testing.T) {
	spec := connection.SourceSpec{Spec: fileSpec(), Collection: "users"}
	spec.Macros = connection.NewFieldSet(connection.FieldDatabaseName)

	_, err := SourceFormat(spec)
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestSinkFormat(t *testing.T) {
	f, err := SinkFormat(connection.SinkSpec{Spec: fileSpec(), Collection: "users", BatchSize: 100})
	require.NoError(t, err)
	assert.Equal(t, SinkFormatName, f.Name)
	assert.Equal(t, "100", f.Properties.Get(propertymap.KeyBatchSize))

	_, err = SinkFormat(connection.SinkSpec{Spec: fileSpec(), Collection: "users", BatchSize: 1000})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeValidation))
}

func TestOpenFormat(t *testing.T) {
	h := newHarness(t, harnessConfig{files: map[string]string{"/path/to/file": testServiceAccountJSON}})

	f, err := SinkFormat(connection.SinkSpec{Spec: fileSpec(), Collection: "users", IDType: connection.IDTypeCustom})
	require.NoError(t, err)

	task, err := h.factory.OpenFormat(context.Background(), f.Name, f.Properties)
	require.NoError(t, err)
	defer task.Close()

	params, ok := task.Params.(propertymap.SinkParams)
	require.True(t, ok)
	assert.Equal(t, "users", params.Collection)
	assert.Equal(t, connection.IDTypeCustom, params.IDType)
	assert.Equal(t, connection.DefaultBatchSize, params.BatchSize)
	assert.Equal(t, "testdatabase", task.Handle.Database())
}

func TestOpenFormat_UnknownFormat(t *testing.T) {
	h := newHarness(t, harnessConfig{})

	_, err := h.factory.OpenFormat(context.Background(), "parquet", propertymap.New())
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeNotFound))
	assert.Empty(t, h.opener.calls)
}

func TestOpenFormat_CodecMismatch(t *testing.T) {
	h := newHarness(t, harnessConfig{})

	f, err := SourceFormat(connection.SourceSpec{Spec: fileSpec(), Collection: "users"})
	require.NoError(t, err)

	raw := f.Properties.ToMap()
	delete(raw, propertymap.KeyCollection)

	_, err = h.factory.OpenFormat(context.Background(), f.Name, propertymap.FromMap(raw))
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeCodec))
}
