package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-firestore/pkg/testutil"
	"github.com/ajitpratap0/nebula-firestore/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceJob = `
name: users-export
connection:
  referenceName: users_export
  project: ${TEST_FIRESTORE_PROJECT}
  databaseName: ${macro:database}
  serviceAccountType: filePath
  serviceFilePath: /secrets/sa.json
source:
  collection: users
  queryMode: Advanced
  filters: "age > 21"
  fields: [name, email]
  includeDocumentId: "true"
  idAlias: doc_id
logging:
  level: debug
  encoding: console
`

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a: b", "a: b"},
		{"variable", "a: ${TEST_VAR}", "a: value"},
		{"unset variable", "a: ${TEST_UNSET_VAR}", "a: "},
		{"macro kept", "a: ${macro:db}", "a: ${macro:db}"},
		{"mixed", "${TEST_VAR}-${macro:x}-${TEST_VAR}", "value-${macro:x}-value"},
		{"unterminated", "a: ${TEST_VAR", "a: ${TEST_VAR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.in))
		})
	}
}

func TestIsMacro(t *testing.T) {
	assert.True(t, IsMacro("${macro:db}"))
	assert.True(t, IsMacro(" ${macro:db} "))
	assert.False(t, IsMacro("${db}"))
	assert.False(t, IsMacro("db"))
	assert.False(t, IsMacro(""))
}

func TestParseJob_Source(t *testing.T) {
	t.Setenv("TEST_FIRESTORE_PROJECT", "test-project")

	job, err := ParseJob([]byte(sourceJob))
	require.NoError(t, err)
	assert.Equal(t, "users-export", job.Name)
	assert.Equal(t, "debug", job.Logging.Level)
	assert.Equal(t, "console", job.Logging.Encoding)

	spec, err := job.SourceSpec()
	require.NoError(t, err)

	assert.Equal(t, "test-project", spec.ProjectID)
	assert.True(t, spec.IsDeferred(connection.FieldDatabaseName))
	assert.False(t, spec.IsDeferred(connection.FieldProject))
	assert.Equal(t, connection.AccountTypeFilePath, spec.ServiceAccountType)
	assert.Equal(t, "users", spec.Collection)
	assert.Equal(t, connection.QueryModeAdvanced, spec.QueryMode)
	assert.Equal(t, []string{"name", "email"}, spec.Fields)
	assert.True(t, spec.IncludeDocumentID)
	assert.Equal(t, "doc_id", spec.IDAlias)

	_, err = job.SinkSpec()
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestParseJob_Sink(t *testing.T) {
	job, err := ParseJob([]byte(`
connection:
  referenceName: users_import
  project: p
  serviceAccountType: JSON
  serviceAccountJSON: ${macro:secure(sa)}
sink:
  collection: ${macro:collection}
  idType: CustomId
  batchSize: "100"
`))
	require.NoError(t, err)

	spec, err := job.SinkSpec()
	require.NoError(t, err)
	assert.True(t, spec.IsDeferred(connection.FieldServiceAccountJSON))
	assert.True(t, spec.IsDeferred(connection.FieldCollection))
	assert.Equal(t, connection.IDTypeCustom, spec.IDType)
	assert.Equal(t, 100, spec.BatchSize)

	_, err = job.SourceSpec()
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestParseJob_DeferredConnectionGetters(t *testing.T) {
	job, err := ParseJob([]byte(`
connection:
  referenceName: r
  project: ${macro:project}
  databaseName: ${macro:db}
  serviceAccountType: filePath
  serviceFilePath: ${macro:keyfile}
source:
  collection: c
`))
	require.NoError(t, err)

	spec, err := job.SourceSpec()
	require.NoError(t, err)

	assert.Equal(t, "", spec.DatabaseName())
	assert.Equal(t, "", spec.TryProject(context.Background(), func(context.Context) (string, error) {
		return "env-project", nil
	}))
	assert.False(t, spec.NeedsProjectDetection())
	assert.Equal(t, "", spec.FilePath())
	assert.Equal(t, "", spec.ServiceAccount())
}

func TestParseJob_FieldList(t *testing.T) {
	tests := []struct {
		name     string
		fields   string
		want     []string
		deferred bool
	}{
		{"sequence", "[name, email]", []string{"name", "email"}, false},
		{"comma separated", `"name, email"`, []string{"name", "email"}, false},
		{"macro element", `["name", "${macro:extra}"]`, []string{"name", "${macro:extra}"}, true},
		{"scalar macro", "${macro:fields}", []string{"${macro:fields}"}, true},
		{"empty", `""`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseJob([]byte("connection:\n  referenceName: r\nsource:\n  collection: c\n  fields: " + tt.fields + "\n"))
			require.NoError(t, err)

			spec, err := job.SourceSpec()
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Fields)
			assert.Equal(t, tt.deferred, spec.IsDeferred(connection.FieldSchema))
			assert.NotContains(t, validation.ValidateSource(spec).Fields(), connection.FieldSchema)
		})
	}
}

func TestParseJob_DeferredTypedValues(t *testing.T) {
	job, err := ParseJob([]byte(`
connection:
  referenceName: r
sink:
  collection: c
  batchSize: ${macro:batch}
source:
  collection: c
  includeDocumentId: ${macro:include}
`))
	require.NoError(t, err)

	sink, err := job.SinkSpec()
	require.NoError(t, err)
	assert.True(t, sink.IsDeferred(connection.FieldBatchSize))
	assert.Equal(t, 0, sink.BatchSize)

	source, err := job.SourceSpec()
	require.NoError(t, err)
	assert.True(t, source.IsDeferred(connection.FieldIncludeDocumentID))
}

func TestParseJob_BadTypedValues(t *testing.T) {
	job, err := ParseJob([]byte(`
connection:
  referenceName: r
sink:
  collection: c
  batchSize: lots
source:
  collection: c
  includeDocumentId: maybe
`))
	require.NoError(t, err)

	_, err = job.SinkSpec()
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

	_, err = job.SourceSpec()
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestParseJob_InvalidYAML(t *testing.T) {
	_, err := ParseJob([]byte("connection: [unclosed"))
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestLoadJob(t *testing.T) {
	t.Setenv("TEST_FIRESTORE_PROJECT", "test-project")
	path := testutil.CreateTempFile(t, "job.yaml", []byte(sourceJob))

	job, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "test-project", job.Connection.Project)

	_, err = LoadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	in := JobConfig{
		Name:       "j",
		Connection: ConnectionConfig{ReferenceName: "r", DatabaseName: "${macro:db}"},
		Sink:       &SinkConfig{Collection: "c"},
	}
	require.NoError(t, Save(path, in))

	out, err := LoadJob(path)
	require.NoError(t, err)
	assert.Equal(t, "${macro:db}", out.Connection.DatabaseName)
	assert.Equal(t, "c", out.Sink.Collection)
	assert.Nil(t, out.Source)
}
