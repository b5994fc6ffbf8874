package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/witness"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config:\n%w", err)
	}

	logger.Init(cfg.LogLevel)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	node, err := NewNode(cfg)
	if err != nil {
		return fmt.Errorf("create node:\n%w", err)
	}

	printStartupInfo(cfg)

	return node.Run()
}

// printStartupInfo displays node configuration at startup.
func printStartupInfo(cfg *Config) {
	pubKey := cfg.PrivateKey.Public().(ed25519.PublicKey)
	vault, _ := cfg.VaultIdentity()

	attrs := []any{
		"pubkey", hex.EncodeToString(pubKey),
		"vault", vault.Short(),
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"faucet", cfg.API.Faucet,
	}

	// The node key doubles as a witness key for registry files
	if wk, err := witness.DeriveFromED25519(cfg.PrivateKey); err == nil {
		attrs = append(attrs, "witnessKey", hex.EncodeToString(wk.PublicKeyBytes()))
	}

	logger.Info("starting ledger node", attrs...)
}
