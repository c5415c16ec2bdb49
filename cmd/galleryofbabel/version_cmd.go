package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davelindo/galleryofbabel/internal/buildinfo"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version and build hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(buildinfo.UserAgent())
		return nil
	},
}
