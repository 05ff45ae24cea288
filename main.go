package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/adi64/hyrise/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "hyrise-tuner",
	Short: "automatic index tuner",
	Long:  `automatic secondary-index tuner for the in-process column store`,
}

func init() {
	cobra.OnInitialize()
	rootCmd.AddCommand(cmd.NewTuneCmd())
	rootCmd.AddCommand(cmd.NewWorkloadCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
