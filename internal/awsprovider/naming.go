package awsprovider

import "github.com/google/uuid"

// newNonce mints the fresh identifier each instance is keyed by. It is a
// package variable rather than a plain function so tests can pin it to a
// fixed value and drive the name-collision path deterministically.
var newNonce = func() string {
	return uuid.New().String()
}

// functionName derives the uniquely named Lambda function for a nonce.
func functionName(nonce string) string {
	return "cloudify-" + nonce
}

// logGroupName derives the log group the function writes to.
func logGroupName(fn string) string {
	return "/aws/lambda/" + fn
}

// ephemeralRoleName derives an execution role name from the same nonce, so
// rolePolicy=ephemeral roles are unique per instance and safe to delete at
// teardown without touching anything another instance created.
func ephemeralRoleName(nonce string) string {
	return "cloudify-role-" + nonce
}

// cachedRoleName is the fixed, well-known execution role name shared by all
// rolePolicy=cached instances. It is created on first use and never
// deleted.
const cachedRoleName = "cloudify-cached-role"

// feedbackRoleName is the fixed SNS failure-feedback role name. An existing
// role of this name is reused; teardown deletes it when RolePolicy is
// ephemeral and leaves it in place when cached. The SNS delivery-log group
// has no programmatic lookup and is not cleaned up.
const feedbackRoleName = "cloudify-sns-feedback-role"

// newCallID mints a fresh 128-bit correlation identifier per call.
func newCallID() string {
	return uuid.New().String()
}
