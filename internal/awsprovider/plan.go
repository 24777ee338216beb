package awsprovider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/bgdnvk/cloudify-aws/internal/manifest"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// logGroupRetentionDays is the retention the planner pre-creates the log
// group with, so cleanup always has a bounded amount of log data to
// reclaim even if teardown is delayed.
const logGroupRetentionDays = 1

// deadLetterRedriveMaxReceiveCount bounds how many times a response-queue
// message is redelivered before SQS routes it to the dead-letter queue.
const deadLetterRedriveMaxReceiveCount = 5

// Packager produces a deployable code archive from a user function module.
// It is an external collaborator; cloudify only defines the shape it needs.
type Packager interface {
	Pack(ctx context.Context, functionModule string) ([]byte, error)
}

// Initialize stands up every resource the options call for, in dependency
// order (leaves first): execution role -> log group -> DLQ -> function ->
// request topic -> response queue -> subscription. The DLQ drain starts
// right after the DLQ; the response collector is not started here but on
// the first queue-mode Invoke. Any failure partway through triggers Cleanup
// of everything created so far before the error is returned.
func Initialize(ctx context.Context, client *Client, pack Packager, functionModule string, opts Options) (*Instance, error) {
	opts = opts.withDefaults()
	logger := newLogger(opts.Debug)

	nonce := newNonce()
	fnName := functionName(nonce)
	logGroup := logGroupName(fnName)

	bgCtx, cancel := context.WithCancel(context.Background())
	in := &Instance{
		client:   client,
		useQueue: opts.UseQueue,
		options:  opts,
		logger:   logger,
		ctx:      bgCtx,
		cancel:   cancel,
		pending:  make(map[string]*pendingSlot),
		manifest: manifest.Resources{
			// FunctionName is deliberately left unset here: it is recorded
			// only once the name-collision check in provision() passes, so
			// a collision never leaves teardown pointed at the pre-existing
			// function it collided with.
			LogGroupName: logGroup,
			Region:       client.Region,
			RolePolicy:   opts.RolePolicy,
		},
	}

	if err := provision(ctx, in, pack, functionModule, nonce, fnName, logGroup, opts); err != nil {
		logger.Error("initialize failed, rolling back partial state", zap.Error(err))
		Cleanup(context.Background(), in)
		return nil, err
	}
	return in, nil
}

func provision(ctx context.Context, in *Instance, pack Packager, functionModule, nonce, fnName, logGroup string, opts Options) error {
	client := in.client
	logger := in.logger

	// 1. execution role.
	roleName := opts.RoleName
	if opts.RolePolicy == manifest.RolePolicyEphemeral {
		roleName = ephemeralRoleName(nonce)
	} else if roleName == "" {
		roleName = cachedRoleName
	}
	in.manifest.RoleName = roleName

	roleArn, err := getOrCreateRole(ctx, client.IAM, logger, roleName, "lambda.amazonaws.com", opts.PolicyArn)
	if err != nil {
		return &ProvisioningError{Step: "execution role", Err: err}
	}

	// 2. inline deny-create-log-group policy.
	if err := attachDenyCreateLogGroupPolicy(ctx, client.IAM, roleName); err != nil {
		return &ProvisioningError{Step: "deny-create-log-group policy", Err: err}
	}

	// 3. log group, pre-created with retention so the function cannot
	// silently recreate one without it.
	if _, err := client.Logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: &logGroup}); err != nil {
		return &ProvisioningError{Step: "log group", Err: err}
	}
	retention := int32(logGroupRetentionDays)
	if _, err := client.Logs.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    &logGroup,
		RetentionInDays: &retention,
	}); err != nil {
		return &ProvisioningError{Step: "log group retention", Err: err}
	}

	// 4. name-collision check: a pre-existing function with the derived
	// name is fatal, since nonces are meant to be fresh. in.manifest's
	// FunctionName is only recorded once this passes, so teardown of a
	// collision never touches the function it collided with.
	if _, err := client.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: &fnName}); err == nil {
		return &NameCollision{FunctionName: fnName}
	}
	in.manifest.FunctionName = fnName

	var dlqARN *string
	if opts.UseQueue {
		// 5. DLQ, then its drain loop starts immediately: it is a
		// fire-and-forget companion for the whole instance lifetime, not
		// tied to any particular pending call.
		dlqURL, arn, err := createQueue(ctx, client.SQS, "cloudify-dlq-"+nonce, nil)
		if err != nil {
			return &ProvisioningError{Step: "dead-letter queue", Err: err}
		}
		in.manifest.DeadLetterQueueURL = &dlqURL
		dlqARN = &arn
		startDLQDrain(in, dlqURL)
	}

	// 6. begin function creation; queue mode continues wiring the topic
	// while this races IAM role propagation in the background.
	archive, err := pack.Pack(ctx, functionModule)
	if err != nil {
		return &ProvisioningError{Step: "package function module", Err: err}
	}
	createInput := &lambda.CreateFunctionInput{
		FunctionName: &fnName,
		Role:         &roleArn,
		Runtime:      lambdatypes.RuntimeProvidedal2023,
		Handler:      strPtr("bootstrap"),
		Code:         &lambdatypes.FunctionCode{ZipFile: archive},
		Timeout:      int32Ptr(opts.TimeoutSeconds),
		MemorySize:   int32Ptr(opts.MemorySizeMB),
	}
	if err := applyProviderOverrides(createInput, opts.ProviderSpecific); err != nil {
		return &ProvisioningError{Step: "apply provider-specific overrides", Err: err}
	}
	fnResultCh := make(chan error, 1)
	go func() {
		// Polled against the instance's own background context, not the
		// caller's ctx: if provisioning fails downstream and Cleanup runs
		// before this resolves, in.cancel() (see stopAndAwaitLoops) must
		// reach this loop so it stops retrying before teardown deletes
		// whatever function creation manages to produce.
		fnResultCh <- pollUntilSuccess(in.backgroundCtx(), "function creation", func(ctx context.Context) error {
			_, err := client.Lambda.CreateFunction(ctx, createInput)
			return err
		})
	}()

	if !opts.UseQueue {
		if err := <-fnResultCh; err != nil {
			return err
		}
		return nil
	}

	// 7. SNS feedback role under a fixed name, reused if it already exists;
	// teardown deletes it only when RolePolicy is ephemeral.
	feedbackArn, err := getOrCreateRole(ctx, client.IAM, logger, feedbackRoleName, "sns.amazonaws.com", "arn:aws:iam::aws:policy/service-role/AmazonSNSRole")
	if err != nil {
		return &ProvisioningError{Step: "sns feedback role", Err: err}
	}
	in.manifest.FeedbackRoleName = manifest.StringPtr(feedbackRoleName)

	// 8. request topic, with its failure-feedback attribute wired once the
	// feedback role has propagated.
	topicOut, err := client.SNS.CreateTopic(ctx, &sns.CreateTopicInput{Name: strPtr("cloudify-topic-" + nonce)})
	if err != nil {
		return &ProvisioningError{Step: "request topic", Err: err}
	}
	topicArn := *topicOut.TopicArn
	in.manifest.RequestTopicARN = &topicArn

	err = pollUntilSuccess(ctx, "topic failure-feedback attribute", func(ctx context.Context) error {
		_, err := client.SNS.SetTopicAttributes(ctx, &sns.SetTopicAttributesInput{
			TopicArn:       &topicArn,
			AttributeName:  strPtr("LambdaFailureFeedbackRoleArn"),
			AttributeValue: &feedbackArn,
		})
		return err
	})
	if err != nil {
		return err
	}

	// 9. response queue, redrive policy pointing at the DLQ. Visibility
	// timeout equals the function timeout so in-flight messages are not
	// redelivered while still being processed; a message not deleted within
	// that window becomes visible again.
	redrive := fmt.Sprintf(`{"deadLetterTargetArn":"%s","maxReceiveCount":%d}`, *dlqARN, deadLetterRedriveMaxReceiveCount)
	respURL, _, err := createQueue(ctx, client.SQS, "cloudify-response-"+nonce, map[string]string{
		"RedrivePolicy":     redrive,
		"VisibilityTimeout": fmt.Sprintf("%d", opts.TimeoutSeconds),
	})
	if err != nil {
		return &ProvisioningError{Step: "response queue", Err: err}
	}
	in.manifest.ResponseQueueURL = &respURL

	// 10. await function creation before wiring the subscription.
	if err := <-fnResultCh; err != nil {
		return err
	}
	fnOut, err := client.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: &fnName})
	if err != nil {
		return &ProvisioningError{Step: "read created function", Err: err}
	}
	fnArn := *fnOut.Configuration.FunctionArn

	// 11. grant SNS invoke permission, then subscribe.
	if _, err := client.Lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: &fnName,
		StatementId:  strPtr("cloudify-sns-invoke"),
		Action:       strPtr("lambda:InvokeFunction"),
		Principal:    strPtr("sns.amazonaws.com"),
		SourceArn:    &topicArn,
	}); err != nil {
		return &ProvisioningError{Step: "grant sns invoke permission", Err: err}
	}

	subOut, err := client.SNS.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn: &topicArn,
		Protocol: strPtr("lambda"),
		Endpoint: &fnArn,
		Attributes: map[string]string{
			"RedrivePolicy": fmt.Sprintf(`{"deadLetterTargetArn":"%s"}`, *dlqARN),
		},
	})
	if err != nil {
		return &ProvisioningError{Step: "subscribe function to topic", Err: err}
	}
	in.manifest.SubscriptionARN = subOut.SubscriptionArn

	// 12. the collector itself is started lazily by the dispatch pipeline
	// on the first queue-mode call (see dispatch.go), keeping the
	// at-most-one-collector invariant tied to pending call count rather
	// than instance lifetime.
	return nil
}

func createQueue(ctx context.Context, api SQSAPI, name string, attrs map[string]string) (url, arn string, err error) {
	out, err := api.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: &name, Attributes: attrs})
	if err != nil {
		return "", "", err
	}
	url = *out.QueueUrl
	attrOut, err := api.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &url,
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return url, "", err
	}
	return url, attrOut.Attributes["QueueArn"], nil
}

func int32Ptr(v int32) *int32 { return &v }

// createOverrides are the recognized keys of Options.ProviderSpecific,
// decoded with mapstructure the same way viper decodes CLI config. Anything
// cloudify doesn't model directly (runtime, VPC placement, environment
// variables, ...) arrives here instead of growing the Options struct.
type createOverrides struct {
	Runtime             string            `mapstructure:"runtime"`
	Handler             string            `mapstructure:"handler"`
	Description         string            `mapstructure:"description"`
	Environment         map[string]string `mapstructure:"environment"`
	Layers              []string          `mapstructure:"layers"`
	Architectures       []string          `mapstructure:"architectures"`
	KMSKeyArn           string            `mapstructure:"kmsKeyArn"`
	VpcSubnetIds        []string          `mapstructure:"vpcSubnetIds"`
	VpcSecurityGroupIds []string          `mapstructure:"vpcSecurityGroupIds"`
	Tags                map[string]string `mapstructure:"tags"`
	DeadLetterTargetArn string            `mapstructure:"deadLetterTargetArn"`
}

// applyProviderOverrides decodes providerSpecific's recognized keys and
// merges them onto input last, after every field the core already set. Only
// the fields of createOverrides are applied; any other key is ignored.
func applyProviderOverrides(input *lambda.CreateFunctionInput, providerSpecific map[string]any) error {
	if len(providerSpecific) == 0 {
		return nil
	}
	var o createOverrides
	if err := mapstructure.Decode(providerSpecific, &o); err != nil {
		return fmt.Errorf("decode provider-specific overrides: %w", err)
	}

	if o.Runtime != "" {
		input.Runtime = lambdatypes.Runtime(o.Runtime)
	}
	if o.Handler != "" {
		input.Handler = &o.Handler
	}
	if o.Description != "" {
		input.Description = &o.Description
	}
	if len(o.Environment) > 0 {
		input.Environment = &lambdatypes.Environment{Variables: o.Environment}
	}
	if len(o.Layers) > 0 {
		input.Layers = o.Layers
	}
	if len(o.Architectures) > 0 {
		archs := make([]lambdatypes.Architecture, len(o.Architectures))
		for i, a := range o.Architectures {
			archs[i] = lambdatypes.Architecture(a)
		}
		input.Architectures = archs
	}
	if o.KMSKeyArn != "" {
		input.KMSKeyArn = &o.KMSKeyArn
	}
	if len(o.VpcSubnetIds) > 0 || len(o.VpcSecurityGroupIds) > 0 {
		input.VpcConfig = &lambdatypes.VpcConfig{
			SubnetIds:        o.VpcSubnetIds,
			SecurityGroupIds: o.VpcSecurityGroupIds,
		}
	}
	if len(o.Tags) > 0 {
		input.Tags = o.Tags
	}
	if o.DeadLetterTargetArn != "" {
		input.DeadLetterConfig = &lambdatypes.DeadLetterConfig{TargetArn: &o.DeadLetterTargetArn}
	}
	return nil
}
