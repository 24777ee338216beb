package awsprovider

import (
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// startDLQDrain launches the dead-letter drain: a fire-and-forget sibling
// of the response collector, with the same long-poll/batch-delete/stop-
// sentinel discipline, but it never resolves a pending slot. Messages here
// are invocations that never reached the trampoline (e.g. topic-to-function
// delivery failures) and are logged, not surfaced to callers.
func startDLQDrain(in *Instance, queueURL string) {
	h := &collectorHandle{done: make(chan struct{})}
	in.mu.Lock()
	in.dlq = h
	in.mu.Unlock()
	go runDLQDrain(in, h, queueURL)
}

func runDLQDrain(in *Instance, h *collectorHandle, queueURL string) {
	defer close(h.done)
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
			in.logger.Warn("dead-letter queue receive failed", zap.Error(err))
			continue
		}

		deleteMessagesBestEffort(ctx, in, queueURL, out.Messages)

		for _, msg := range out.Messages {
			if isStopSentinel(msg) {
				return
			}
			body := ""
			if msg.Body != nil {
				body = *msg.Body
			}
			in.logger.Info("dead-letter message", zap.String("body", body))
		}
	}
}
