// Package connector opens Firestore connections on the worker side of a
// batch job.
//
// # Architecture Overview
//
// A job is configured once on the client and executed by many workers that
// share no memory with it. The client validates a connection.SourceSpec or
// connection.SinkSpec and flattens it into a propertymap.Map; the host
// framework ships that map with every task. On the worker, a Factory
// decodes the map, resolves credentials, and opens a client:
//
//	client side                         worker side
//	-----------                         -----------
//	SourceFormat(spec)  ── Format ──▶   Factory.OpenFormat(ctx, name, props)
//	  validation.ValidateSource           registry.Decode
//	  propertymap.EncodeSource            credentials.Resolver.Resolve
//	                                      firestore.NewClientWithDatabase
//
// # Errors
//
// Open returns a codec mismatch (nebulaerrors.ErrorTypeCodec) unchanged: it
// means the map was written by an incompatible encoder. Every other failure,
// unreadable credentials included, is wrapped in a single
// nebulaerrors.ErrorTypeInitialization error whose cause chain keeps the
// original. Nothing is retried.
//
// # Resources
//
// A Handle owns exactly one client. Close it on every exit path, or let
// WithHandle do it:
//
//	err := factory.WithHandle(ctx, props, func(ctx context.Context, h *connector.Handle) error {
//		client, _ := h.Firestore()
//		_, err := client.Collection("users").Doc("alice").Get(ctx)
//		return err
//	})
package connector
