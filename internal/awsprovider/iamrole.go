package awsprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"go.uber.org/zap"
)

// trustPolicy builds the assume-role policy document for the given
// principal service (lambda.amazonaws.com for execution roles,
// sns.amazonaws.com for the feedback role).
func trustPolicy(service string) string {
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string]string{"Service": service},
				"Action":    "sts:AssumeRole",
			},
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// getOrCreateRole is the shared create-or-reuse subroutine backing both the
// execution-role and feedback-role paths. Lookup errors are swallowed:
// absence manifests as a lookup failure, and distinguishing absence from a
// transient error is not required because a subsequent creation failure
// surfaces loudly on its own.
func getOrCreateRole(ctx context.Context, api IAMAPI, logger *zap.Logger, roleName, trustedService, policyArn string) (string, error) {
	if out, err := api.GetRole(ctx, &iam.GetRoleInput{RoleName: &roleName}); err == nil {
		return *out.Role.Arn, nil
	}

	logger.Debug("iam role not found, creating", zap.String("role", roleName))
	created, err := api.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 &roleName,
		AssumeRolePolicyDocument: strPtr(trustPolicy(trustedService)),
	})
	if err != nil {
		return "", fmt.Errorf("cloudify: create role %s: %w", roleName, err)
	}

	if policyArn != "" {
		if _, err := api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  &roleName,
			PolicyArn: &policyArn,
		}); err != nil {
			return "", fmt.Errorf("cloudify: attach policy %s to role %s: %w", policyArn, roleName, err)
		}
	}

	return *created.Role.Arn, nil
}

// denyCreateLogGroupPolicyName is the inline policy name attached to the
// execution role that denies logs:CreateLogGroup, so the function cannot
// silently re-create its log group without the retention policy the
// planner set up for it.
const denyCreateLogGroupPolicyName = "cloudify-deny-create-log-group"

func attachDenyCreateLogGroupPolicy(ctx context.Context, api IAMAPI, roleName string) error {
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":   "Deny",
				"Action":   "logs:CreateLogGroup",
				"Resource": "*",
			},
		},
	}
	b, _ := json.Marshal(doc)
	_, err := api.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       &roleName,
		PolicyName:     strPtr(denyCreateLogGroupPolicyName),
		PolicyDocument: strPtr(string(b)),
	})
	if err != nil {
		return fmt.Errorf("cloudify: attach deny-create-log-group policy to role %s: %w", roleName, err)
	}
	return nil
}

// deleteEphemeralRole tears down a role created in ephemeral mode: detach
// every attached managed policy, delete every inline policy, then delete
// the role itself. Each step is best-effort since teardown must tolerate
// resources that were never created or already gone.
func deleteEphemeralRole(ctx context.Context, api IAMAPI, logger *zap.Logger, roleName string) {
	if attached, err := api.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{RoleName: &roleName}); err == nil {
		for _, p := range attached.AttachedPolicies {
			if _, err := api.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{RoleName: &roleName, PolicyArn: p.PolicyArn}); err != nil {
				logger.Warn("detach role policy failed", zap.String("role", roleName), zap.Error(err))
			}
		}
	} else {
		logger.Warn("list attached role policies failed", zap.String("role", roleName), zap.Error(err))
	}

	if inline, err := api.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: &roleName}); err == nil {
		for _, name := range inline.PolicyNames {
			n := name
			if _, err := api.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{RoleName: &roleName, PolicyName: &n}); err != nil {
				logger.Warn("delete inline role policy failed", zap.String("role", roleName), zap.Error(err))
			}
		}
	} else {
		logger.Warn("list inline role policies failed", zap.String("role", roleName), zap.Error(err))
	}

	if _, err := api.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: &roleName}); err != nil {
		logger.Warn("delete role failed", zap.String("role", roleName), zap.Error(err))
	}
}

func strPtr(s string) *string { return &s }
