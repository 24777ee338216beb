package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cloudify",
	Short: "Run ordinary functions as ephemeral AWS Lambda invocations",
	Long: `cloudify ships a function module to AWS Lambda, invokes it either
synchronously or through an SNS/SQS queue, and tears every resource it
created back down.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cloudify.yaml)")
	rootCmd.PersistentFlags().String("region", "", "AWS region (or set CLOUDIFY_REGION)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable verbose structured logging")

	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(resourcesCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cloudify")
	}

	viper.SetEnvPrefix("cloudify")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("debug") {
		fmt.Println("using config file:", viper.ConfigFileUsed())
	}
}
