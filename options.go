package cloudify

import (
	"github.com/bgdnvk/cloudify-aws/internal/awsprovider"
	"github.com/bgdnvk/cloudify-aws/internal/manifest"
)

// RolePolicy selects whether Initialize creates a fresh, per-instance
// execution role that teardown deletes (Ephemeral) or reuses a fixed,
// well-known role that is created on first use and never deleted (Cached).
type RolePolicy = manifest.RolePolicy

const (
	Ephemeral RolePolicy = manifest.RolePolicyEphemeral
	Cached    RolePolicy = manifest.RolePolicyCached
)

// Options are the recognized provider options, plus a passthrough bag of
// Lambda create-function overrides that this facade doesn't model directly.
type Options struct {
	// Region targets all SDK clients; the ambient default region is used
	// when empty.
	Region string

	// PolicyArn is the managed policy attached to the execution role.
	PolicyArn string
	// RolePolicy selects ephemeral vs cached role handling.
	RolePolicy RolePolicy
	// RoleName overrides the role name; ignored when RolePolicy is
	// Ephemeral.
	RoleName string

	// TimeoutSeconds bounds function execution and becomes the response
	// queue's visibility timeout in queue mode.
	TimeoutSeconds int32
	// MemorySizeMB is the function's memory allocation.
	MemorySizeMB int32

	// UseQueue selects queue mode (publish/long-poll) over direct mode
	// (synchronous invoke).
	UseQueue bool

	// ProviderSpecific overrides are merged into the function-creation
	// request last, after every field above. Only a fixed set of recognized
	// keys is applied; any other key is ignored.
	ProviderSpecific map[string]any

	// Packager produces the deployable archive from the function module
	// path passed to Initialize.
	Packager awsprovider.Packager

	// Debug enables verbose, development-style structured logging.
	Debug bool
}

func (o Options) toProvider() awsprovider.Options {
	return awsprovider.Options{
		Region:           o.Region,
		PolicyArn:        o.PolicyArn,
		RolePolicy:       o.RolePolicy,
		RoleName:         o.RoleName,
		TimeoutSeconds:   o.TimeoutSeconds,
		MemorySizeMB:     o.MemorySizeMB,
		UseQueue:         o.UseQueue,
		ProviderSpecific: o.ProviderSpecific,
		Debug:            o.Debug,
	}
}
