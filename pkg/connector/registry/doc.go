// Package registry maps connector format names to worker-side decoders.
//
// The client ships a (format name, property map) pair with every task. On
// the worker, the name selects the decoder that turns the map back into
// typed parameters:
//
//	params, err := registry.Decode(connector.SourceFormatName, props)
//	if err != nil {
//		return err
//	}
//	conn := params.Connection()
//
// Formats register themselves from an init function in the connector
// package.
package registry
