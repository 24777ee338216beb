package fakeaws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

func (b *Backend) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	return &iam.GetRoleOutput{Role: &types.Role{RoleName: in.RoleName, Arn: &r.arn}}, nil
}

func (b *Backend) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.roles[*in.RoleName]; exists {
		return nil, &types.EntityAlreadyExistsException{Message: in.RoleName}
	}
	r := &role{arn: fakeArn("iam::role", *in.RoleName), attached: map[string]string{}, inline: map[string]string{}}
	b.roles[*in.RoleName] = r
	b.recordMutation()
	return &iam.CreateRoleOutput{Role: &types.Role{RoleName: in.RoleName, Arn: &r.arn}}, nil
}

func (b *Backend) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	r.attached[*in.PolicyArn] = *in.PolicyArn
	b.recordMutation()
	return &iam.AttachRolePolicyOutput{}, nil
}

func (b *Backend) PutRolePolicy(_ context.Context, in *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	r.inline[*in.PolicyName] = *in.PolicyDocument
	b.recordMutation()
	return &iam.PutRolePolicyOutput{}, nil
}

func (b *Backend) ListAttachedRolePolicies(_ context.Context, in *iam.ListAttachedRolePoliciesInput, _ ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	out := &iam.ListAttachedRolePoliciesOutput{}
	for arn := range r.attached {
		arn := arn
		out.AttachedPolicies = append(out.AttachedPolicies, types.AttachedPolicy{PolicyArn: &arn})
	}
	return out, nil
}

func (b *Backend) DetachRolePolicy(_ context.Context, in *iam.DetachRolePolicyInput, _ ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	delete(r.attached, *in.PolicyArn)
	b.recordMutation()
	return &iam.DetachRolePolicyOutput{}, nil
}

func (b *Backend) ListRolePolicies(_ context.Context, in *iam.ListRolePoliciesInput, _ ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	out := &iam.ListRolePoliciesOutput{}
	for name := range r.inline {
		out.PolicyNames = append(out.PolicyNames, name)
	}
	return out, nil
}

func (b *Backend) DeleteRolePolicy(_ context.Context, in *iam.DeleteRolePolicyInput, _ ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[*in.RoleName]
	if !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	delete(r.inline, *in.PolicyName)
	b.recordMutation()
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (b *Backend) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.roles[*in.RoleName]; !ok {
		return nil, &types.NoSuchEntityException{Message: in.RoleName}
	}
	delete(b.roles, *in.RoleName)
	b.recordMutation()
	return &iam.DeleteRoleOutput{}, nil
}
