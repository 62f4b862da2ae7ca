package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go/keypair"
)

var genKeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "generate a random signing keypair",
	Long: "this command lets you generate a new random ed25519 keypair, " +
		"printing the public key to register as cosigner and the secret seed " +
		"to keep offline",
	RunE: genKey,
}

func genKey(cmd *cobra.Command, _ []string) error {
	kp, err := keypair.Random()
	if err != nil {
		return err
	}

	buf, _ := json.MarshalIndent(map[string]string{
		"public_key":  kp.Address(),
		"secret_seed": kp.Seed(),
	}, "", "  ")
	fmt.Println(string(buf))
	return nil
}
