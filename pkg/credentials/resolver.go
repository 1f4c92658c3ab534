// Package credentials turns the connector's authentication settings into a
// live Google credential. Resolution is blocking and happens on the caller's
// goroutine: reading a key file, or asking the environment (and possibly the
// metadata server) for application-default credentials.
package credentials

import (
	"context"
	"os"

	"github.com/ajitpratap0/nebula-firestore/pkg/logger"
	"github.com/ajitpratap0/nebula-firestore/pkg/metrics"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
)

// Scopes requested for every credential.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/cloud-platform",
}

// Environment variables consulted for the project id before the credentials.
var projectEnvVars = []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT"}

// DefaultFinder looks up application-default credentials.
type DefaultFinder func(ctx context.Context, scopes ...string) (*google.Credentials, error)

// FileReader reads a key file.
type FileReader func(path string) ([]byte, error)

// Resolver resolves a Source into credentials. The zero value is not
// usable; create one with NewResolver.
type Resolver struct {
	scopes      []string
	findDefault DefaultFinder
	readFile    FileReader
	logger      *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithScopes overrides DefaultScopes.
func WithScopes(scopes ...string) Option {
	return func(r *Resolver) { r.scopes = scopes }
}

// WithDefaultFinder replaces the application-default lookup.
func WithDefaultFinder(f DefaultFinder) Option {
	return func(r *Resolver) { r.findDefault = f }
}

// WithFileReader replaces the key file reader.
func WithFileReader(f FileReader) Option {
	return func(r *Resolver) { r.readFile = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver backed by golang.org/x/oauth2/google.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		scopes:      DefaultScopes,
		findDefault: google.FindDefaultCredentials,
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().With(zap.String("component", "credential_resolver"))
	}
	return r
}

// Resolve returns credentials for src. Failures are ErrorTypeCredential.
func (r *Resolver) Resolve(ctx context.Context, src Source) (*google.Credentials, error) {
	if src == nil {
		src = Ambient{}
	}

	creds, err := r.resolve(ctx, src)
	metrics.ObserveCredential(string(src.Strategy()), metrics.Outcome(err))
	if err != nil {
		r.logger.Debug("credential resolution failed",
			zap.String("strategy", string(src.Strategy())),
			zap.Error(err))
		return nil, err
	}

	r.logger.Debug("credentials resolved",
		zap.String("strategy", string(src.Strategy())),
		zap.String("project", creds.ProjectID))
	return creds, nil
}

// ResolveMaterial resolves credentials straight from the configured
// material, see FromMaterial.
func (r *Resolver) ResolveMaterial(ctx context.Context, serviceAccount string, isFilePath bool) (*google.Credentials, error) {
	return r.Resolve(ctx, FromMaterial(serviceAccount, isFilePath))
}

func (r *Resolver) resolve(ctx context.Context, src Source) (*google.Credentials, error) {
	switch s := src.(type) {
	case Ambient:
		creds, err := r.findDefault(ctx, r.scopes...)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeCredential,
				"application default credentials are not available")
		}
		if creds == nil {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeCredential,
				"application default credentials are not available")
		}
		return creds, nil

	case FilePath:
		data, err := r.readFile(s.Path)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeCredential,
				"unable to read service account file").
				WithDetail("path", s.Path)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, r.scopes...)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeCredential,
				"service account file is not a valid credential").
				WithDetail("path", s.Path)
		}
		return creds, nil

	case InlineJSON:
		creds, err := google.CredentialsFromJSON(ctx, []byte(s.Payload), r.scopes...)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeCredential,
				"service account JSON is not a valid credential")
		}
		return creds, nil

	default:
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeInternal, "unknown credential source %T", src)
	}
}

// AmbientUnavailable reports whether application-default credentials are
// missing in this environment. Every error from the lookup is reported as
// true and never returned.
func (r *Resolver) AmbientUnavailable(ctx context.Context) (unavailable bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("ambient credential probe panicked", zap.Any("panic", rec))
			unavailable = true
		}
	}()

	if _, err := r.findDefault(ctx, r.scopes...); err != nil {
		r.logger.Debug("ambient credentials unavailable", zap.Error(err))
		return true
	}
	return false
}

// DetectProject returns the project id of the ambient environment: the
// GOOGLE_CLOUD_PROJECT or GCLOUD_PROJECT variables, then the project of the
// application-default credentials.
func (r *Resolver) DetectProject(ctx context.Context) (string, error) {
	for _, name := range projectEnvVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}

	creds, err := r.findDefault(ctx, r.scopes...)
	if err != nil {
		return "", nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig,
			"could not detect Google Cloud project id from the environment")
	}
	if creds == nil || creds.ProjectID == "" {
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig,
			"application default credentials carry no project id")
	}
	return creds.ProjectID, nil
}
