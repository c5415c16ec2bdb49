package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "galleryofbabel",
	Short:         "Explore the seed space and submit the best finds",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the command tree rooted at rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
