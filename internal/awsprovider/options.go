package awsprovider

import "github.com/bgdnvk/cloudify-aws/internal/manifest"

// Options mirrors the recognized option table of the resource planner: a
// fixed set of fields this core understands, plus a passthrough bag of
// function-creation overrides (see ProviderSpecific).
type Options struct {
	Region string

	PolicyArn  string
	RolePolicy manifest.RolePolicy
	RoleName   string

	TimeoutSeconds int32
	MemorySizeMB   int32

	UseQueue bool

	// ProviderSpecific is merged into the function-creation request last,
	// after every field this core sets. Only the keys createOverrides
	// recognizes (runtime, handler, description, environment, layers,
	// architectures, KMS key, VPC subnets and security groups, tags,
	// dead-letter target) are applied; any other key is ignored.
	ProviderSpecific map[string]any

	Debug bool
}

// withDefaults fills in the zero-value defaults the planner assumes.
func (o Options) withDefaults() Options {
	if o.RolePolicy == "" {
		o.RolePolicy = manifest.RolePolicyEphemeral
	}
	if o.TimeoutSeconds == 0 {
		o.TimeoutSeconds = 30
	}
	if o.MemorySizeMB == 0 {
		o.MemorySizeMB = 128
	}
	return o
}
