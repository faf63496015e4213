package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "github.com/Elelei/Blockchain-Land-Registry-System/internal/jwt_token"
	"github.com/Elelei/Blockchain-Land-Registry-System/pkg/domain"
)

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key and print its registry address",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address:     %s\n", domain.AddressFromPublicKey(pub))
			fmt.Fprintf(out, "public key:  %s\n", hex.EncodeToString(pub))
			fmt.Fprintf(out, "private key: %s\n", hex.EncodeToString(priv.Seed()))
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		address string
		seedHex string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token for an address or key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := commonRun(cmd)
			if err != nil {
				return err
			}
			caller, err := resolveCaller(address, seedHex)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.TokenTTL
			}
			token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, tokenAudience).
				GenerateAccessToken(caller, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "caller address (0x-prefixed hex)")
	cmd.Flags().StringVar(&seedHex, "key", "", "hex ed25519 private key seed; the address is derived from it")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func resolveCaller(address, seedHex string) (domain.Address, error) {
	switch {
	case address != "" && seedHex != "":
		return domain.Address{}, fmt.Errorf("use either --address or --key")
	case address != "":
		return domain.ParseAddress(address)
	case seedHex != "":
		seed, err := hex.DecodeString(seedHex)
		if err != nil || len(seed) != ed25519.SeedSize {
			return domain.Address{}, fmt.Errorf("key must be a %d byte hex seed", ed25519.SeedSize)
		}
		pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
		return domain.AddressFromPublicKey(pub), nil
	}
	return domain.Address{}, fmt.Errorf("one of --address or --key is required")
}
