package awsprovider

import "fmt"

// ProvisioningError wraps any permanent SDK failure encountered during
// Initialize. The caller must treat the instance as unusable; the planner
// runs Cleanup on the partial state before this error ever surfaces.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("cloudify: provisioning failed at %s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// ProvisioningTimeout is returned when a bounded poll-until-success loop
// exhausts its attempts without the underlying resource becoming ready.
type ProvisioningTimeout struct {
	Step     string
	Attempts int
	Err      error
}

func (e *ProvisioningTimeout) Error() string {
	return fmt.Sprintf("cloudify: provisioning timed out waiting for %s after %d attempts: %v", e.Step, e.Attempts, e.Err)
}

func (e *ProvisioningTimeout) Unwrap() error { return e.Err }

// NameCollision is fatal: a function with the derived nonce-based name
// already exists. Since nonces are fresh per instance this should not
// recur in practice.
type NameCollision struct {
	FunctionName string
}

func (e *NameCollision) Error() string {
	return fmt.Sprintf("cloudify: function name %q already exists", e.FunctionName)
}

// RemoteInvocationFailure wraps the error the remote function reported.
// It never propagates as a Go error from Invoke; it is carried in the
// Result.Error field instead.
type RemoteInvocationFailure struct {
	Name    string
	Message string
	Stack   string
}

func (e *RemoteInvocationFailure) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Cancelled is the error every pending slot fails with when a teardown
// sends a stop sentinel while the call is still outstanding.
type Cancelled struct {
	CallID string
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf("cloudify: call %s cancelled by teardown", e.CallID)
}

// MalformedManifest is thrown synchronously by CleanupResources when the
// manifest it was given is missing required fields (region, above all).
type MalformedManifest struct {
	Reason string
}

func (e *MalformedManifest) Error() string {
	return fmt.Sprintf("cloudify: malformed manifest: %s", e.Reason)
}
