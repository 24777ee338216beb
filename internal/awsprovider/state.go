package awsprovider

import (
	"context"
	"sync"

	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/bgdnvk/cloudify-aws/internal/manifest"
	"github.com/bgdnvk/cloudify-aws/internal/wire"
	"go.uber.org/zap"
)

// slotResult pairs the decoded reply with the SQS message it arrived on, so
// the caller-facing Result.RawResponse carries the same "underlying SDK
// envelope" guarantee in queue mode that direct mode gets from
// lambda.InvokeOutput.
type slotResult struct {
	ret wire.FunctionReturn
	raw sqstypes.Message
}

// pendingSlot is a single-assignment handoff for one call's outcome. It is
// completed at most once, either with a slotResult from the collector or
// with an error (RemoteInvocationFailure already folded in, transport
// failure, or Cancelled from teardown).
type pendingSlot struct {
	resultCh chan slotResult
	errCh    chan error
	once     sync.Once
}

func newPendingSlot() *pendingSlot {
	return &pendingSlot{
		resultCh: make(chan slotResult, 1),
		errCh:    make(chan error, 1),
	}
}

func (s *pendingSlot) complete(ret wire.FunctionReturn, raw sqstypes.Message) {
	s.once.Do(func() { s.resultCh <- slotResult{ret: ret, raw: raw} })
}

func (s *pendingSlot) fail(err error) {
	s.once.Do(func() { s.errCh <- err })
}

// collectorHandle tracks one long-running long-poll loop (the response
// collector or the DLQ drain). done is closed when the loop has returned,
// which teardown waits on after sending the stop sentinel.
type collectorHandle struct {
	done chan struct{}
}

// Instance is the runtime state returned by Initialize: the manifest of
// everything it owns, plus the non-serializable SDK client handles and
// in-flight call bookkeeping. It exists only between Initialize and a
// completed Cleanup.
type Instance struct {
	client   *Client
	manifest manifest.Resources
	useQueue bool
	options  Options
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	pending   map[string]*pendingSlot
	collector *collectorHandle
	dlq       *collectorHandle

	teardownOnce sync.Once
}

// Manifest returns a copy of the current resource manifest, safe to
// serialize via manifest.Encode.
func (in *Instance) Manifest() manifest.Resources {
	return in.manifest
}

// backgroundCtx is the long-lived context the collector and DLQ drain loops
// poll against; it outlives the context Initialize was called with and is
// only cancelled by Cleanup, as a belt-and-suspenders alongside the stop
// sentinel messages that normally terminate those loops.
func (in *Instance) backgroundCtx() context.Context {
	return in.ctx
}
