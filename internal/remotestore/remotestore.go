// Package remotestore defines the boundary between the metadata
// service and the actual per-cloud object stores it tracks. The
// metadata service never moves bytes itself (spec §1 Non-goals); it
// only needs enough of a client surface to delete the physical
// objects a clean_object/clean_out_remaining decided to remove.
package remotestore

import "context"

// ObjectRef names one physical object in one cloud:region location,
// the unit delete_objects operates on.
type ObjectRef struct {
	LocationTag string
	Bucket      string
	Key         string
	VersionID   string
}

// Client is the per-cloud adapter interface. No concrete cloud SDK
// implementation is wired here (spec Non-goals: remote-store PUT/GET
// implementations are out of scope); callers inject a Client per
// deployment.
type Client interface {
	// DeleteObjects removes a batch of physical objects, grouped by
	// the caller per location tag. It must be safe to call with refs
	// already deleted (idempotent no-op), since sweeper/eviction
	// retries can re-issue a batch after a partial failure.
	DeleteObjects(ctx context.Context, refs []ObjectRef) error
}

// NoopClient is a Client that performs no remote calls. server.New
// wires it in for every deployment (LocalTest is not consulted), and
// unit tests use it when they only assert on metadata-store side
// effects.
type NoopClient struct{}

func (NoopClient) DeleteObjects(context.Context, []ObjectRef) error { return nil }
