package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	rootCmd = &cobra.Command{
		Use:   "lumenvault",
		Short: "offline signer tooling for the lumenvault daemon",
		Long: "This CLI lets cosigners generate keypairs, inspect proposal " +
			"envelopes and produce the detached signatures the daemon " +
			"accumulates, without the secret seed ever leaving this machine",
		Version: formatVersion(),
	}
)

func init() {
	rootCmd.AddCommand(genKeyCmd, hashCmd, signCmd, verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
