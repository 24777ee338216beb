// Package cloudify turns an ordinary function module into ephemeral
// AWS Lambda invocations, hiding provisioning, dispatch, response
// correlation, and teardown behind a small call-through facade.
package cloudify

import (
	"context"
	"encoding/json"

	"github.com/bgdnvk/cloudify-aws/internal/archive"
	"github.com/bgdnvk/cloudify-aws/internal/awsprovider"
	"github.com/bgdnvk/cloudify-aws/internal/manifest"
)

// State is the opaque handle Initialize returns. It carries everything
// Invoke, Cleanup, and GetResourceList need and exists only between a
// successful Initialize and a completed Cleanup.
type State struct {
	instance *awsprovider.Instance
}

// Initialize ships functionModulePath to AWS Lambda and provisions every
// resource opts calls for. On any failure partway through, it tears down
// whatever it had already created before returning a *ProvisioningError,
// *ProvisioningTimeout, or *NameCollision.
func Initialize(ctx context.Context, functionModulePath string, opts Options) (*State, error) {
	client, err := awsprovider.NewClient(ctx, opts.Region)
	if err != nil {
		return nil, err
	}
	pack := opts.Packager
	if pack == nil {
		pack = archive.Builder{}
	}
	in, err := awsprovider.Initialize(ctx, client, pack, functionModulePath, opts.toProvider())
	if err != nil {
		return nil, err
	}
	return &State{instance: in}, nil
}

// Invoke dispatches one call through state and returns its outcome. It
// never returns an error for a call-level failure — that surfaces through
// Result.Error — only for transport or cancellation failures.
func Invoke(ctx context.Context, state *State, functionName string, args any) (Result, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return Result{}, err
	}
	r, err := awsprovider.Invoke(ctx, state.instance, functionName, encoded)
	if err != nil {
		return Result{}, err
	}
	return fromProviderResult(r), nil
}

// Cleanup stops background loops and deletes every resource state owns.
// It is idempotent and tolerates any subset of resources already being
// gone.
func Cleanup(ctx context.Context, state *State) error {
	return awsprovider.Cleanup(ctx, state.instance)
}

// GetResourceList returns the JSON-encoded manifest naming every resource
// state owns, suitable for persisting and later handing to
// CleanupResources.
func GetResourceList(state *State) (string, error) {
	m := state.instance.Manifest()
	return manifest.Encode(&m)
}

// CleanupResources parses a manifest previously produced by
// GetResourceList, reconstructs SDK clients from its region, and deletes
// everything it names — without any live State.
func CleanupResources(ctx context.Context, manifestJSON string) error {
	return awsprovider.CleanupResources(ctx, manifestJSON)
}
