package awsprovider

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/bgdnvk/cloudify-aws/internal/manifest"
	"github.com/bgdnvk/cloudify-aws/internal/wire"
	"go.uber.org/zap"
)

// collectorAwaitTimeout bounds how long Cleanup waits for a collector/DLQ
// loop to observe its stop sentinel before giving up and moving on; a loop
// that never wakes (e.g. because the queue was already deleted out from
// under it) must not block teardown forever.
const collectorAwaitTimeout = 30 * time.Second

// Cleanup stops the background loops and deletes every resource this
// instance owns, tolerating any subset of manifest fields being unset.
// It is idempotent: a second call performs no cloud mutations.
func Cleanup(ctx context.Context, in *Instance) error {
	in.teardownOnce.Do(func() {
		teardown(ctx, in.client, in.logger, &in.manifest, in)
	})
	return nil
}

// CleanupResources parses a previously persisted manifest, reconstructs SDK
// clients from its region, and deletes everything it names. There is no
// live Instance to stop collectors on, matching the contract that this path
// works from a serialized manifest with no in-memory state.
func CleanupResources(ctx context.Context, manifestJSON string) error {
	res, err := manifest.Decode(manifestJSON)
	if err != nil {
		return &MalformedManifest{Reason: err.Error()}
	}
	if res.Region == "" {
		return &MalformedManifest{Reason: "region is missing"}
	}

	client, err := NewClient(ctx, res.Region)
	if err != nil {
		return &ProvisioningError{Step: "reconstruct sdk clients", Err: err}
	}

	teardown(ctx, client, newLogger(false), res, nil)
	return nil
}

// teardown runs the inverse-order deletion sequence. in is nil when called
// from CleanupResources, where there is no live collector/DLQ to stop.
func teardown(ctx context.Context, client *Client, logger *zap.Logger, res *manifest.Resources, in *Instance) {
	if res.SubscriptionARN != nil {
		if _, err := client.SNS.Unsubscribe(ctx, &sns.UnsubscribeInput{SubscriptionArn: res.SubscriptionARN}); err != nil {
			logger.Warn("unsubscribe failed", zap.Error(err))
		}
	}

	stopAndAwaitLoops(ctx, client, logger, res, in)

	// FunctionName is unset when provisioning failed at or before the
	// name-collision check (e.g. a name collision, or an earlier role/log-group
	// failure) — nothing to delete, and in the collision case nothing this
	// instance owns in the first place. Once set, a function that was never
	// created just makes DeleteFunction fail, which is logged.
	if res.FunctionName != "" {
		if _, err := client.Lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: &res.FunctionName}); err != nil {
			logger.Warn("delete function failed", zap.String("function", res.FunctionName), zap.Error(err))
		}
	}

	if res.LogGroupName != "" {
		if _, err := client.Logs.DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{LogGroupName: &res.LogGroupName}); err != nil {
			logger.Warn("delete log group failed", zap.String("logGroup", res.LogGroupName), zap.Error(err))
		}
	}

	if res.RolePolicy == manifest.RolePolicyEphemeral {
		if res.RoleName != "" {
			deleteEphemeralRole(ctx, client.IAM, logger, res.RoleName)
		}
		if res.FeedbackRoleName != nil {
			deleteEphemeralRole(ctx, client.IAM, logger, *res.FeedbackRoleName)
		}
	}

	if res.RequestTopicARN != nil {
		if _, err := client.SNS.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: res.RequestTopicARN}); err != nil {
			logger.Warn("delete request topic failed", zap.Error(err))
		}
	}
	if res.ResponseQueueURL != nil {
		if _, err := client.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: res.ResponseQueueURL}); err != nil {
			logger.Warn("delete response queue failed", zap.Error(err))
		}
	}
	if res.DeadLetterQueueURL != nil {
		if _, err := client.SQS.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: res.DeadLetterQueueURL}); err != nil {
			logger.Warn("delete dead-letter queue failed", zap.Error(err))
		}
	}
}

// stopAndAwaitLoops sends a stop sentinel to the response queue and the
// DLQ (when this teardown has a live Instance to stop) and waits for each
// loop to exit, bounded by collectorAwaitTimeout. Every call still pending
// is failed with Cancelled here directly; a collector that reads its stop
// sentinel first does the same through cancelAllPending.
func stopAndAwaitLoops(ctx context.Context, client *Client, logger *zap.Logger, res *manifest.Resources, in *Instance) {
	if in == nil {
		return
	}

	if res.ResponseQueueURL != nil {
		sendStopSentinel(ctx, client.SQS, *res.ResponseQueueURL, logger)
	}
	if res.DeadLetterQueueURL != nil {
		sendStopSentinel(ctx, client.SQS, *res.DeadLetterQueueURL, logger)
	}

	in.mu.Lock()
	collector, dlq := in.collector, in.dlq
	pending := in.pending
	in.pending = make(map[string]*pendingSlot)
	in.mu.Unlock()

	for callID, slot := range pending {
		slot.fail(&Cancelled{CallID: callID})
	}

	in.cancel()

	awaitDone(collector)
	awaitDone(dlq)
}

func awaitDone(h *collectorHandle) {
	if h == nil {
		return
	}
	select {
	case <-h.done:
	case <-time.After(collectorAwaitTimeout):
	}
}

func sendStopSentinel(ctx context.Context, api SQSAPI, queueURL string, logger *zap.Logger) {
	body := wire.StopSentinelBody
	attrValue := wire.StopSentinelValue
	_, err := api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &queueURL,
		MessageBody: &body,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			wire.StopSentinelAttribute: {DataType: strPtr("String"), StringValue: &attrValue},
		},
	})
	if err != nil {
		logger.Warn("send stop sentinel failed", zap.String("queue", queueURL), zap.Error(err))
	}
}
