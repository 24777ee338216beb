package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bgdnvk/cloudify-aws/internal/manifest"
)

var resourcesManifestFile string

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Print a human-readable summary of a saved manifest",
	RunE:  runResources,
}

func init() {
	resourcesCmd.Flags().StringVar(&resourcesManifestFile, "manifest-file", "", "path to a manifest written by 'invoke --save-manifest' (required)")
	resourcesCmd.MarkFlagRequired("manifest-file")
}

func runResources(_ *cobra.Command, _ []string) error {
	data, err := os.ReadFile(resourcesManifestFile)
	if err != nil {
		return fmt.Errorf("read manifest file: %w", err)
	}
	res, err := manifest.Decode(string(data))
	if err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}

	fmt.Printf("function:    %s (%s)\n", res.FunctionName, res.Region)
	fmt.Printf("role:        %s (%s)\n", res.RoleName, res.RolePolicy)
	fmt.Printf("log group:   %s\n", res.LogGroupName)
	fmt.Printf("queue mode:  %v\n", res.UseQueue())
	if res.RequestTopicARN != nil {
		fmt.Printf("topic:       %s\n", *res.RequestTopicARN)
	}
	if res.ResponseQueueURL != nil {
		fmt.Printf("response q:  %s\n", *res.ResponseQueueURL)
	}
	if res.DeadLetterQueueURL != nil {
		fmt.Printf("dlq:         %s\n", *res.DeadLetterQueueURL)
	}
	return nil
}
