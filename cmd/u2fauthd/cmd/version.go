package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	u2f "github.com/solokeys-go/u2fauth"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the U2F protocol version this authenticator core implements",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), u2f.VersionString)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
