package cloudify

import (
	"encoding/json"

	"github.com/bgdnvk/cloudify-aws/internal/awsprovider"
)

// Result is the outcome of one Invoke call. At most one of Value or Error
// is set. RawResponse always carries the underlying SDK envelope through
// for observability.
type Result struct {
	Value       json.RawMessage
	Error       *RemoteInvocationFailure
	RawResponse any
}

// Unmarshal decodes Value into v. It is a convenience for callers who know
// the concrete return type of the function they invoked.
func (r Result) Unmarshal(v any) error {
	return json.Unmarshal(r.Value, v)
}

func fromProviderResult(r awsprovider.Result) Result {
	var rf *RemoteInvocationFailure
	if r.Error != nil {
		rf = &RemoteInvocationFailure{Name: r.Error.Name, Message: r.Error.Message, Stack: r.Error.Stack}
	}
	return Result{Value: r.Value, Error: rf, RawResponse: r.RawResponse}
}
