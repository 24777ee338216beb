// Package manifest defines the serializable record of every cloud resource
// one cloudify instance owns. It is the only thing CleanupResources needs
// to tear an instance down with no live in-memory state.
package manifest

import "encoding/json"

// RolePolicy selects whether the execution role is ephemeral (created and
// deleted per-instance) or cached (a fixed, reused, never-deleted role).
type RolePolicy string

const (
	RolePolicyEphemeral RolePolicy = "ephemeral"
	RolePolicyCached    RolePolicy = "cached"
)

// Resources is a superset of what currently exists in the cloud: teardown
// must tolerate any subset of these fields being absent. Queue-mode fields
// are pointers so "never created" is distinguishable from the zero value.
type Resources struct {
	FunctionName string     `json:"functionName"`
	RoleName     string     `json:"roleName"`
	RolePolicy   RolePolicy `json:"rolePolicy"`
	LogGroupName string     `json:"logGroupName"`
	Region       string     `json:"region"`

	RequestTopicARN    *string `json:"requestTopicArn,omitempty"`
	ResponseQueueURL   *string `json:"responseQueueUrl,omitempty"`
	DeadLetterQueueURL *string `json:"deadLetterQueueUrl,omitempty"`
	SubscriptionARN    *string `json:"subscriptionArn,omitempty"`
	FeedbackRoleName   *string `json:"feedbackRoleName,omitempty"`
}

// UseQueue reports whether the manifest describes a queue-mode instance.
func (r *Resources) UseQueue() bool {
	return r.RequestTopicARN != nil || r.ResponseQueueURL != nil
}

// Encode serializes the manifest the way getResourceList exposes it to
// callers: a JSON string they can persist and later hand to
// CleanupResources.
func Encode(r *Resources) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a manifest string previously produced by Encode.
func Decode(s string) (*Resources, error) {
	var r Resources
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func StringPtr(s string) *string { return &s }
