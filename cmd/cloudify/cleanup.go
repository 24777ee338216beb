package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	cloudify "github.com/bgdnvk/cloudify-aws"
)

var cleanupManifestFile string

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete every resource named by a saved manifest",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupManifestFile, "manifest-file", "", "path to a manifest written by 'invoke --save-manifest' (required)")
	cleanupCmd.MarkFlagRequired("manifest-file")
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(cleanupManifestFile)
	if err != nil {
		return fmt.Errorf("read manifest file: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	if err := cloudify.CleanupResources(ctx, string(data)); err != nil {
		return fmt.Errorf("cleanup resources: %w", err)
	}
	fmt.Println("resources deleted")
	return nil
}
