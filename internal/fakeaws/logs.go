package fakeaws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

func (b *Backend) CreateLogGroup(_ context.Context, in *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.logGroups[*in.LogGroupName]; exists {
		return nil, &types.ResourceAlreadyExistsException{Message: in.LogGroupName}
	}
	b.logGroups[*in.LogGroupName] = &logGroup{}
	b.recordMutation()
	return &cloudwatchlogs.CreateLogGroupOutput{}, nil
}

func (b *Backend) PutRetentionPolicy(_ context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lg, ok := b.logGroups[*in.LogGroupName]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: in.LogGroupName}
	}
	lg.retentionDays = in.RetentionInDays
	b.recordMutation()
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (b *Backend) DeleteLogGroup(_ context.Context, in *cloudwatchlogs.DeleteLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteLogGroupOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.logGroups[*in.LogGroupName]; !ok {
		return nil, &types.ResourceNotFoundException{Message: in.LogGroupName}
	}
	delete(b.logGroups, *in.LogGroupName)
	b.recordMutation()
	return &cloudwatchlogs.DeleteLogGroupOutput{}, nil
}
