package cloudify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgdnvk/cloudify-aws/internal/awsprovider"
)

func TestResultUnmarshal(t *testing.T) {
	r := Result{Value: json.RawMessage(`{"sum":7}`)}
	var out struct {
		Sum int `json:"sum"`
	}
	require.NoError(t, r.Unmarshal(&out))
	assert.Equal(t, 7, out.Sum)
}

func TestFromProviderResultMapsError(t *testing.T) {
	r := fromProviderResult(awsprovider.Result{
		Error: &awsprovider.RemoteInvocationFailure{Name: "TypeError", Message: "bad args"},
	})
	require.NotNil(t, r.Error)
	assert.Equal(t, "TypeError", r.Error.Name)

	var rf *RemoteInvocationFailure
	require.True(t, errors.As(error(r.Error), &rf))
}

func TestOptionsToProviderMapsEveryField(t *testing.T) {
	opts := Options{
		Region:           "eu-west-1",
		PolicyArn:        "arn:aws:iam::aws:policy/ReadOnlyAccess",
		RolePolicy:       Cached,
		RoleName:         "my-role",
		TimeoutSeconds:   60,
		MemorySizeMB:     256,
		UseQueue:         true,
		ProviderSpecific: map[string]any{"VpcConfig": "x"},
		Debug:            true,
	}
	p := opts.toProvider()
	assert.Equal(t, opts.Region, p.Region)
	assert.Equal(t, opts.PolicyArn, p.PolicyArn)
	assert.EqualValues(t, opts.RolePolicy, p.RolePolicy)
	assert.Equal(t, opts.RoleName, p.RoleName)
	assert.Equal(t, opts.TimeoutSeconds, p.TimeoutSeconds)
	assert.Equal(t, opts.MemorySizeMB, p.MemorySizeMB)
	assert.Equal(t, opts.UseQueue, p.UseQueue)
	assert.Equal(t, opts.ProviderSpecific, p.ProviderSpecific)
	assert.Equal(t, opts.Debug, p.Debug)
}
