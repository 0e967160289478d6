// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keyBits int

// keysCmd generates an RSA keypair for token signing.
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate an RSA keypair for token signing",
	Long:  `Generate an RSA keypair and print the PEM encoded private and public keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := rsa.GenerateKey(rand.Reader, keyBits)
		if err != nil {
			return fmt.Errorf("failed to generate keypair: %w", err)
		}

		privateBlock := &pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}

		publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return fmt.Errorf("failed to marshal public key: %w", err)
		}
		publicBlock := &pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicDER,
		}

		if err := pem.Encode(os.Stdout, privateBlock); err != nil {
			return err
		}
		return pem.Encode(os.Stdout, publicBlock)
	},
}

func init() {
	keysCmd.Flags().IntVar(&keyBits, "bits", 2048, "RSA key size in bits")

	rootCmd.AddCommand(keysCmd)
}
