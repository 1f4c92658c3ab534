package connector

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/credentials"
	"github.com/ajitpratap0/nebula-firestore/pkg/logger"
	"github.com/ajitpratap0/nebula-firestore/pkg/metrics"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-firestore/pkg/observability"
	"github.com/ajitpratap0/nebula-firestore/pkg/propertymap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client is the part of a Firestore client the factory manages.
// *firestore.Client implements it.
type Client interface {
	Close() error
}

// Opener creates a client for one database.
type Opener func(ctx context.Context, project, database string, opts ...option.ClientOption) (Client, error)

// FirestoreOpener opens a real Firestore client.
func FirestoreOpener(ctx context.Context, project, database string, opts ...option.ClientOption) (Client, error) {
	c, err := firestore.NewClientWithDatabase(ctx, project, database, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Factory turns decoded connection parameters into open clients. It is
// safe for concurrent use; every Open call is independent.
type Factory struct {
	resolver *credentials.Resolver
	opener   Opener
	tracer   trace.Tracer
	logger   *zap.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithResolver sets the credential resolver.
func WithResolver(r *credentials.Resolver) Option {
	return func(f *Factory) { f.resolver = r }
}

// WithOpener replaces FirestoreOpener.
func WithOpener(o Opener) Option {
	return func(f *Factory) { f.opener = o }
}

// WithTracerProvider sets where Open spans go.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Factory) { f.tracer = observability.Tracer(tp) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a factory that opens real Firestore clients.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{opener: FirestoreOpener}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().With(zap.String("component", "firestore_connector"))
	}
	if f.resolver == nil {
		f.resolver = credentials.NewResolver(credentials.WithLogger(f.logger))
	}
	if f.tracer == nil {
		f.tracer = observability.Tracer(nil)
	}
	return f
}

// Open decodes m and opens a client for the database it names. A codec
// mismatch is returned unchanged; every other failure is wrapped in a
// single ErrorTypeInitialization error. Nothing is retried.
func (f *Factory) Open(ctx context.Context, m *propertymap.Map) (*Handle, error) {
	params, err := propertymap.DecodeConnection(m)
	if err != nil {
		return nil, err
	}
	return f.OpenParams(ctx, params)
}

// OpenParams opens a client for already decoded parameters.
func (f *Factory) OpenParams(ctx context.Context, p propertymap.ConnectionParams) (h *Handle, err error) {
	src := p.CredentialSource()
	database := databaseID(p.DatabaseName)

	ctx, span := f.tracer.Start(ctx, "firestore.connector.open",
		trace.WithAttributes(
			attribute.String("firestore.database", database),
			attribute.String("credential.strategy", string(src.Strategy())),
		))
	timer := metrics.NewTimer("open")
	log := f.logger.With(
		zap.String("database", database),
		zap.String("credential_strategy", string(src.Strategy())),
	)

	defer func() {
		metrics.ObserveOpen(metrics.Outcome(err), timer.Stop())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("failed to open Firestore connection", zap.Error(err))
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return nil, initFailure(err, p.Project, database)
	}

	creds, err := f.resolver.Resolve(ctx, src)
	if err != nil {
		return nil, initFailure(err, p.Project, database)
	}

	project := p.Project
	if p.NeedsProjectDetection() {
		if project, err = f.detectProject(ctx, creds.ProjectID); err != nil {
			return nil, initFailure(err, "", database)
		}
	}
	span.SetAttributes(attribute.String("gcp.project_id", project))

	client, err := f.opener(ctx, project, database, option.WithCredentials(creds))
	if err != nil {
		return nil, initFailure(err, project, database)
	}
	if err := ctx.Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			log.Debug("failed to close abandoned client", zap.Error(cerr))
		}
		return nil, initFailure(err, project, database)
	}

	log.Info("Firestore connection opened",
		zap.String("project", project),
		zap.Duration("duration", timer.Stop()))
	return newHandle(client, project, database, log), nil
}

// detectProject prefers the environment and falls back to the project the
// credentials were issued for.
func (f *Factory) detectProject(ctx context.Context, credsProject string) (string, error) {
	project, err := f.resolver.DetectProject(ctx)
	if err == nil {
		return project, nil
	}
	if credsProject != "" {
		return credsProject, nil
	}
	return "", err
}

// WithHandle opens a handle, passes it to fn and closes it on every exit
// path. The error of fn wins over the close error.
func (f *Factory) WithHandle(ctx context.Context, m *propertymap.Map, fn func(ctx context.Context, h *Handle) error) error {
	h, err := f.Open(ctx, m)
	if err != nil {
		return err
	}

	fnErr := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = h.Close()
				panic(rec)
			}
		}()
		return fn(ctx, h)
	}()

	closeErr := h.Close()
	if fnErr != nil {
		return fnErr
	}
	return closeErr
}

func databaseID(name string) string {
	if name == "" || name == connection.DefaultDatabase {
		return firestore.DefaultDatabaseID
	}
	return name
}

func initFailure(err error, project, database string) error {
	return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInitialization,
		"unable to initialize Firestore connection").
		WithDetail("project", project).
		WithDetail("database", database)
}

// Handle owns one open client. Close is idempotent and safe for concurrent
// use.
type Handle struct {
	client   Client
	project  string
	database string
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

func newHandle(client Client, project, database string, log *zap.Logger) *Handle {
	metrics.ActiveHandles.Inc()
	return &Handle{
		client:   client,
		project:  project,
		database: database,
		logger:   log,
	}
}

// Client returns the underlying client.
func (h *Handle) Client() Client {
	return h.client
}

// Firestore returns the client as a *firestore.Client. ok is false when the
// factory was built with a custom Opener.
func (h *Handle) Firestore() (client *firestore.Client, ok bool) {
	client, ok = h.client.(*firestore.Client)
	return client, ok
}

// Project returns the project the client is bound to.
func (h *Handle) Project() string {
	return h.project
}

// Database returns the database the client is bound to.
func (h *Handle) Database() string {
	return h.database
}

// Close releases the client. Later calls return the first result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		metrics.ActiveHandles.Dec()
		h.closeErr = h.client.Close()
		if h.closeErr != nil {
			h.logger.Warn("failed to close Firestore connection", zap.Error(h.closeErr))
			return
		}
		h.logger.Debug("Firestore connection closed")
	})
	return h.closeErr
}
