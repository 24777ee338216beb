package cloudify

import "github.com/bgdnvk/cloudify-aws/internal/awsprovider"

// Error kinds surfaced at the facade boundary, re-exported from
// internal/awsprovider so callers never need to import an internal
// package to use errors.As against them.
type (
	ProvisioningError       = awsprovider.ProvisioningError
	ProvisioningTimeout     = awsprovider.ProvisioningTimeout
	NameCollision           = awsprovider.NameCollision
	RemoteInvocationFailure = awsprovider.RemoteInvocationFailure
	Cancelled               = awsprovider.Cancelled
	MalformedManifest       = awsprovider.MalformedManifest
)
