package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"

	"github.com/lumenvault/lumenvault/pkg/stellartx"
)

var (
	envelopeXDR       string
	networkPassphrase string
	secretSeed        string
	signerKey         string
	signatureB64      string

	hashCmd = &cobra.Command{
		Use:   "hash",
		Short: "compute the network-scoped hash of an envelope",
		Long: "this command lets you compute the hash a proposal approval " +
			"signs, so you can check it against the one shown by the daemon " +
			"before signing",
		RunE: hashEnvelope,
	}
	signCmd = &cobra.Command{
		Use:   "sign",
		Short: "produce a detached signature for an envelope",
		Long: "this command lets you sign the network-scoped hash of a " +
			"proposal envelope with your secret seed, printing the detached " +
			"signature to submit as approval",
		RunE: signEnvelope,
	}
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "verify a detached signature against an envelope",
		Long: "this command lets you check that a detached signature was " +
			"produced by the given public key over the envelope's " +
			"network-scoped hash",
		RunE: verifyEnvelope,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{hashCmd, signCmd, verifyCmd} {
		cmd.Flags().StringVar(
			&envelopeXDR, "envelope", "", "base64 transaction envelope XDR",
		)
		cmd.Flags().StringVar(
			&networkPassphrase, "network-passphrase",
			network.TestNetworkPassphrase, "network passphrase scoping the hash",
		)
		cmd.MarkFlagRequired("envelope")
	}
	signCmd.Flags().StringVar(
		&secretSeed, "seed", "", "secret seed of the signing keypair",
	)
	signCmd.MarkFlagRequired("seed")
	verifyCmd.Flags().StringVar(
		&signerKey, "key", "", "public key the signature is claimed from",
	)
	verifyCmd.Flags().StringVar(
		&signatureB64, "signature", "", "base64 detached signature",
	)
	verifyCmd.MarkFlagRequired("key")
	verifyCmd.MarkFlagRequired("signature")
}

func hashEnvelope(cmd *cobra.Command, _ []string) error {
	hash, err := stellartx.HashHex(envelopeXDR, networkPassphrase)
	if err != nil {
		return err
	}

	fmt.Println(hash)
	return nil
}

func signEnvelope(cmd *cobra.Command, _ []string) error {
	kp, err := keypair.ParseFull(secretSeed)
	if err != nil {
		return fmt.Errorf("invalid secret seed: %w", err)
	}

	hash, err := envelopeHash()
	if err != nil {
		return err
	}

	signature, err := kp.Sign(hash)
	if err != nil {
		return err
	}

	buf, _ := json.MarshalIndent(map[string]string{
		"signer":    kp.Address(),
		"hash":      hex.EncodeToString(hash),
		"signature": base64.StdEncoding.EncodeToString(signature),
	}, "", "  ")
	fmt.Println(string(buf))
	return nil
}

func verifyEnvelope(cmd *cobra.Command, _ []string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("invalid base64 signature: %w", err)
	}

	hash, err := envelopeHash()
	if err != nil {
		return err
	}

	if !stellartx.VerifySignature(signerKey, hash, signature) {
		return fmt.Errorf("signature does not verify for %s", signerKey)
	}

	fmt.Println("signature valid")
	return nil
}

func envelopeHash() ([]byte, error) {
	hashHex, err := stellartx.HashHex(envelopeXDR, networkPassphrase)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(hashHex)
}
