package fakeaws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/bgdnvk/cloudify-aws/internal/wire"
)

func (b *Backend) CreateTopic(_ context.Context, in *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	arn := fakeArn("sns", *in.Name)
	t := &topic{arn: arn, attributes: map[string]string{}}
	b.topics[arn] = t
	b.recordMutation()
	return &sns.CreateTopicOutput{TopicArn: &arn}, nil
}

func (b *Backend) SetTopicAttributes(_ context.Context, in *sns.SetTopicAttributesInput, _ ...func(*sns.Options)) (*sns.SetTopicAttributesOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[*in.TopicArn]
	if !ok {
		return nil, &types.NotFoundException{Message: in.TopicArn}
	}
	if in.AttributeValue != nil {
		t.attributes[*in.AttributeName] = *in.AttributeValue
	}
	b.recordMutation()
	return &sns.SetTopicAttributesOutput{}, nil
}

func (b *Backend) DeleteTopic(_ context.Context, in *sns.DeleteTopicInput, _ ...func(*sns.Options)) (*sns.DeleteTopicOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.topics[*in.TopicArn]; !ok {
		return nil, &types.NotFoundException{Message: in.TopicArn}
	}
	delete(b.topics, *in.TopicArn)
	b.recordMutation()
	return &sns.DeleteTopicOutput{}, nil
}

func (b *Backend) Subscribe(_ context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[*in.TopicArn]
	if !ok {
		return nil, &types.NotFoundException{Message: in.TopicArn}
	}
	arn := fakeArn("sns:subscription", newID())
	sub := &subscription{arn: arn, protocol: *in.Protocol, endpoint: *in.Endpoint}
	t.subscriptions = append(t.subscriptions, sub)
	b.recordMutation()
	return &sns.SubscribeOutput{SubscriptionArn: &arn}, nil
}

func (b *Backend) Unsubscribe(_ context.Context, in *sns.UnsubscribeInput, _ ...func(*sns.Options)) (*sns.UnsubscribeOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.topics {
		for i, sub := range t.subscriptions {
			if sub.arn == *in.SubscriptionArn {
				t.subscriptions = append(t.subscriptions[:i], t.subscriptions[i+1:]...)
				b.recordMutation()
				return &sns.UnsubscribeOutput{}, nil
			}
		}
	}
	return &sns.UnsubscribeOutput{}, nil
}

// Publish is the queue-mode trampoline: it finds every lambda subscriber
// attached to the topic, runs the target in-process, and delivers the
// resulting wire.FunctionReturn to the call's response queue — the same
// division of labor spec.md assigns to the deployed function plus its SNS
// subscription.
func (b *Backend) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	b.mu.Lock()
	t, ok := b.topics[*in.TopicArn]
	if !ok {
		b.mu.Unlock()
		return nil, &types.NotFoundException{Message: in.TopicArn}
	}
	var targets []*function
	for _, sub := range t.subscriptions {
		if sub.protocol != "lambda" {
			continue
		}
		for _, fn := range b.functions {
			if fn.arn == sub.endpoint {
				targets = append(targets, fn)
			}
		}
	}
	b.mu.Unlock()

	var call wire.FunctionCall
	if err := json.Unmarshal([]byte(*in.Message), &call); err != nil {
		return nil, fmt.Errorf("fakeaws: malformed publish message: %w", err)
	}

	id := newID()
	for _, fn := range targets {
		ret := runTarget(fn, call)
		b.deliverReturn(call, ret)
	}
	return &sns.PublishOutput{MessageId: &id}, nil
}

func (b *Backend) deliverReturn(call wire.FunctionCall, ret wire.FunctionReturn) {
	if call.ResponseQueueURL == "" {
		return
	}
	b.mu.Lock()
	q, ok := b.queues[call.ResponseQueueURL]
	b.mu.Unlock()
	if !ok {
		return
	}
	body, err := json.Marshal(ret)
	if err != nil {
		return
	}
	dt := "String"
	q.mu.Lock()
	q.messages = append(q.messages, storedMessage{
		id:   newID(),
		body: string(body),
		attributes: map[string]messageAttr{
			wire.MessageAttributeCallID: {dataType: dt, stringValue: call.CallID},
		},
	})
	q.mu.Unlock()
	b.mu.Lock()
	b.recordMutation()
	b.mu.Unlock()
}
