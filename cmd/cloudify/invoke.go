package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cloudify "github.com/bgdnvk/cloudify-aws"
)

var (
	invokeModule     string
	invokeFunction   string
	invokeArgs       string
	invokeUseQueue   bool
	invokeKeep       bool
	invokeSaveTo     string
	invokeRolePolicy string
	invokePolicyArn  string
	invokeTimeout    int32
	invokeMemory     int32
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Provision a function module and invoke one target",
	RunE:  runInvoke,
}

func init() {
	invokeCmd.Flags().StringVar(&invokeModule, "module", "", "path to the function module directory (required)")
	invokeCmd.Flags().StringVar(&invokeFunction, "function", "", "name of the target to invoke (required)")
	invokeCmd.Flags().StringVar(&invokeArgs, "args", "{}", "JSON-encoded arguments for the target")
	invokeCmd.Flags().BoolVar(&invokeUseQueue, "queue", false, "dispatch through the SNS/SQS queue path instead of a direct invoke")
	invokeCmd.Flags().BoolVar(&invokeKeep, "keep", false, "skip teardown after invoking, leaving resources live")
	invokeCmd.Flags().StringVar(&invokeSaveTo, "save-manifest", "", "write the resource manifest to this file before returning")
	invokeCmd.Flags().StringVar(&invokeRolePolicy, "role-policy", "ephemeral", "execution role lifecycle: ephemeral or cached")
	invokeCmd.Flags().StringVar(&invokePolicyArn, "policy-arn", "", "managed policy ARN attached to the execution role")
	invokeCmd.Flags().Int32Var(&invokeTimeout, "timeout", 30, "function timeout in seconds")
	invokeCmd.Flags().Int32Var(&invokeMemory, "memory", 128, "function memory size in MB")
	invokeCmd.MarkFlagRequired("module")
	invokeCmd.MarkFlagRequired("function")
}

func runInvoke(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	opts := cloudify.Options{
		Region:         viper.GetString("region"),
		RolePolicy:     cloudify.RolePolicy(invokeRolePolicy),
		PolicyArn:      invokePolicyArn,
		TimeoutSeconds: invokeTimeout,
		MemorySizeMB:   invokeMemory,
		UseQueue:       invokeUseQueue,
		Debug:          viper.GetBool("debug"),
	}

	state, err := cloudify.Initialize(ctx, invokeModule, opts)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if invokeSaveTo != "" {
		manifestJSON, err := cloudify.GetResourceList(state)
		if err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
		if err := os.WriteFile(invokeSaveTo, []byte(manifestJSON), 0o600); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	if !invokeKeep {
		defer func() {
			if err := cloudify.Cleanup(context.Background(), state); err != nil {
				fmt.Fprintln(os.Stderr, "cleanup failed:", err)
			}
		}()
	}

	result, err := cloudify.Invoke(ctx, state, invokeFunction, json.RawMessage(invokeArgs))
	if err != nil {
		return fmt.Errorf("invoke: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("remote invocation failed: %s", result.Error.Error())
	}

	fmt.Println(string(result.Value))
	return nil
}
