package fakeaws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func (b *Backend) CreateQueue(_ context.Context, in *sqs.CreateQueueInput, _ ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	url := fmt.Sprintf("https://fakesqs.local/queue/%s", *in.QueueName)
	q := &queueRes{url: url, arn: fakeArn("sqs", *in.QueueName), attributes: in.Attributes}
	b.queues[url] = q
	b.recordMutation()
	return &sqs.CreateQueueOutput{QueueUrl: &url}, nil
}

func (b *Backend) GetQueueAttributes(_ context.Context, in *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[*in.QueueUrl]
	if !ok {
		return nil, &types.QueueDoesNotExist{Message: in.QueueUrl}
	}
	out := map[string]string{"QueueArn": q.arn}
	for k, v := range q.attributes {
		out[k] = v
	}
	return &sqs.GetQueueAttributesOutput{Attributes: out}, nil
}

func (b *Backend) DeleteQueue(_ context.Context, in *sqs.DeleteQueueInput, _ ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.queues[*in.QueueUrl]; !ok {
		return nil, &types.QueueDoesNotExist{Message: in.QueueUrl}
	}
	delete(b.queues, *in.QueueUrl)
	b.recordMutation()
	return &sqs.DeleteQueueOutput{}, nil
}

func (b *Backend) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	b.mu.Lock()
	q, ok := b.queues[*in.QueueUrl]
	b.mu.Unlock()
	if !ok {
		return nil, &types.QueueDoesNotExist{Message: in.QueueUrl}
	}
	id := newID()
	attrs := map[string]messageAttr{}
	for k, v := range in.MessageAttributes {
		if v.StringValue != nil {
			attrs[k] = messageAttr{dataType: *v.DataType, stringValue: *v.StringValue}
		}
	}
	q.mu.Lock()
	q.messages = append(q.messages, storedMessage{id: id, body: *in.MessageBody, attributes: attrs})
	q.mu.Unlock()
	b.mu.Lock()
	b.recordMutation()
	b.mu.Unlock()
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

func (b *Backend) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	b.mu.Lock()
	q, ok := b.queues[*in.QueueUrl]
	b.mu.Unlock()
	if !ok {
		return nil, &types.QueueDoesNotExist{Message: in.QueueUrl}
	}

	max := int(in.MaxNumberOfMessages)
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(time.Duration(in.WaitTimeSeconds) * time.Second)
	for {
		q.mu.Lock()
		if len(q.messages) > 0 {
			n := max
			if n > len(q.messages) {
				n = len(q.messages)
			}
			taken := q.messages[:n]
			q.messages = q.messages[n:]
			q.mu.Unlock()

			out := make([]types.Message, 0, len(taken))
			for _, m := range taken {
				attrs := map[string]types.MessageAttributeValue{}
				for k, v := range m.attributes {
					dt, sv := v.dataType, v.stringValue
					attrs[k] = types.MessageAttributeValue{DataType: &dt, StringValue: &sv}
				}
				body := m.body
				id := m.id
				out = append(out, types.Message{MessageId: &id, ReceiptHandle: &id, Body: &body, MessageAttributes: attrs})
			}
			return &sqs.ReceiveMessageOutput{Messages: out}, nil
		}
		q.mu.Unlock()

		if time.Now().After(deadline) {
			return &sqs.ReceiveMessageOutput{}, nil
		}
		select {
		case <-ctx.Done():
			return &sqs.ReceiveMessageOutput{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (b *Backend) DeleteMessageBatch(_ context.Context, in *sqs.DeleteMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	out := &sqs.DeleteMessageBatchOutput{}
	for _, entry := range in.Entries {
		out.Successful = append(out.Successful, types.DeleteMessageBatchResultEntry{Id: entry.Id})
	}
	return out, nil
}
