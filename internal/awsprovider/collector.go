package awsprovider

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/bgdnvk/cloudify-aws/internal/wire"
	"go.uber.org/zap"
)

// longPollWaitSeconds and longPollBatchSize tune the response/DLQ
// long-poll: wait up to 20s for messages, batch up to 10 at a time.
const (
	longPollWaitSeconds = 20
	longPollBatchSize   = 10
)

// ensureCollectorRunning starts the response collector if it is not
// already active. Registration of the pending slot happens before this is
// called (see invokeQueue), so a reply that beats the publish call back
// still finds its slot waiting.
func ensureCollectorRunning(in *Instance) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.collector != nil {
		return
	}
	h := &collectorHandle{done: make(chan struct{})}
	in.collector = h
	go runCollector(in, h)
}

func runCollector(in *Instance, h *collectorHandle) {
	defer close(h.done)
	queueURL := *in.manifest.ResponseQueueURL
	ctx := in.backgroundCtx()

	for {
		out, err := in.client.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &queueURL,
			WaitTimeSeconds:       longPollWaitSeconds,
			MaxNumberOfMessages:   longPollBatchSize,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			in.logger.Warn("response queue receive failed", zap.Error(err))
			continue
		}

		deleteMessagesBestEffort(ctx, in, queueURL, out.Messages)

		type resolved struct {
			slot *pendingSlot
			body string
			msg  sqstypes.Message
		}
		var toResolve []resolved
		stopped := false

		for _, msg := range out.Messages {
			if isStopSentinel(msg) {
				cancelAllPending(in)
				stopped = true
				continue
			}
			callID := messageCallID(msg)
			slot := takePending(in, callID)
			if slot == nil {
				in.logger.Warn("response for unknown call id dropped", zap.String("callId", callID))
				continue
			}
			body := ""
			if msg.Body != nil {
				body = *msg.Body
			}
			toResolve = append(toResolve, resolved{slot: slot, body: body, msg: msg})
		}

		for _, r := range toResolve {
			var ret wire.FunctionReturn
			if err := json.Unmarshal([]byte(r.body), &ret); err != nil {
				r.slot.fail(err)
				continue
			}
			r.slot.complete(ret, r.msg)
		}

		if stopped {
			return
		}

		if pendingEmpty(in, h) {
			return
		}
	}
}

// pendingEmpty checks and, if the pending map is empty, clears the
// collector handle in the same critical section as the check — so a
// concurrent invoke that lands between the check and the clear always
// re-starts a fresh collector rather than racing an exiting one.
func pendingEmpty(in *Instance, h *collectorHandle) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.pending) != 0 {
		return false
	}
	if in.collector == h {
		in.collector = nil
	}
	return true
}

func takePending(in *Instance, callID string) *pendingSlot {
	in.mu.Lock()
	defer in.mu.Unlock()
	slot := in.pending[callID]
	delete(in.pending, callID)
	return slot
}

func cancelAllPending(in *Instance) {
	in.mu.Lock()
	pending := in.pending
	in.pending = make(map[string]*pendingSlot)
	in.mu.Unlock()
	for callID, slot := range pending {
		slot.fail(&Cancelled{CallID: callID})
	}
}

func isStopSentinel(msg sqstypes.Message) bool {
	attr, ok := msg.MessageAttributes[wire.StopSentinelAttribute]
	return ok && attr.StringValue != nil && *attr.StringValue == wire.StopSentinelValue
}

func messageCallID(msg sqstypes.Message) string {
	attr, ok := msg.MessageAttributes[wire.MessageAttributeCallID]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}

// deleteMessagesBestEffort issues an immediate batch-delete for every
// received message. At-most-once delivery is acceptable: replies are
// correlated by opaque CallId and the trampoline is expected to be
// idempotent on the caller's behalf.
func deleteMessagesBestEffort(ctx context.Context, in *Instance, queueURL string, msgs []sqstypes.Message) {
	if len(msgs) == 0 {
		return
	}
	entries := make([]sqstypes.DeleteMessageBatchRequestEntry, 0, len(msgs))
	for i, m := range msgs {
		id := strconv.Itoa(i)
		entries = append(entries, sqstypes.DeleteMessageBatchRequestEntry{
			Id:            &id,
			ReceiptHandle: m.ReceiptHandle,
		})
	}
	if _, err := in.client.SQS.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: &queueURL,
		Entries:  entries,
	}); err != nil {
		in.logger.Warn("batch delete failed", zap.String("queue", queueURL), zap.Error(err))
	}
}
