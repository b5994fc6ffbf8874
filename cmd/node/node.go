package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/api"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/engine"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/logger"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/snapshot"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/witness"
)

// Node is a running ledger node.
type Node struct {
	cfg       *Config
	storage   *storage.Storage
	registry  *witness.Registry
	engine    *engine.Engine
	api       *api.Server
	sweeper   *engine.Sweeper
	snapshots *snapshot.Manager
}

// NewNode opens storage, loads the witness registry and opens the engine.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.initRegistry(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.initEngine(); err != nil {
		n.Close()
		return nil, err
	}

	if cfg.RestorePath != "" {
		if err := n.restore(cfg.RestorePath); err != nil {
			n.Close()
			return nil, err
		}
	}

	return n, nil
}

// initStorage opens the Pebble store under the data directory.
func (n *Node) initStorage() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir:\n%w", err)
	}

	db, err := storage.Open(filepath.Join(n.cfg.DataPath, "db"), storage.Options{SyncWrites: n.cfg.SyncWrites})
	if err != nil {
		return fmt.Errorf("open storage:\n%w", err)
	}

	n.storage = db

	return nil
}

// initRegistry loads the witness registry. Without one every mint is rejected.
func (n *Node) initRegistry() error {
	if n.cfg.RegistryPath == "" {
		logger.Warn("no witness registry configured, mints will be rejected")
		n.registry = witness.NewRegistry()
		return nil
	}

	reg, err := witness.LoadRegistry(n.cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("load witness registry:\n%w", err)
	}

	n.registry = reg
	logger.Info("witness registry loaded", "witnesses", reg.Len(), "path", n.cfg.RegistryPath)

	return nil
}

// initEngine opens the ledger engine over the store.
func (n *Node) initEngine() error {
	vault, err := n.cfg.VaultIdentity()
	if err != nil {
		return fmt.Errorf("vault identity:\n%w", err)
	}

	n.engine, err = engine.Open(n.storage, engine.Config{
		Params:   n.cfg.Params(),
		Vault:    vault,
		Verifier: n.registry,
		Clock:    engine.NewSystemClock(time.Unix(0, 0), n.cfg.SlotDuration),
	})
	if err != nil {
		return fmt.Errorf("open engine:\n%w", err)
	}

	return nil
}

// restore replaces the store with a snapshot file.
func (n *Node) restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	if _, err := n.engine.Restore(data); err != nil {
		return fmt.Errorf("restore snapshot:\n%w", err)
	}

	return nil
}

// Run starts the node services and blocks until a shutdown signal.
func (n *Node) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	n.snapshots = snapshot.NewManager(n.engine, n.cfg.SnapshotInterval, n.cfg.SnapshotDir)
	n.snapshots.Start()

	if n.cfg.SweepInterval > 0 {
		n.sweeper = engine.NewSweeper(n.engine, n.cfg.SweepInterval)
		n.sweeper.Start()
	}

	n.api = api.New(api.Config{
		Addr:         n.cfg.HTTPAddress,
		MaxClockSkew: n.cfg.API.MaxClockSkew,
		RateLimit:    n.cfg.API.RateLimit,
		RateBurst:    n.cfg.API.RateBurst,
		Faucet:       n.cfg.API.Faucet,
		FaucetMax:    n.cfg.API.FaucetMax,
	}, n.engine, n.snapshots)

	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown(sigCh)
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown(sigCh <-chan os.Signal) error {
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.sweeper != nil {
		n.sweeper.Stop()
	}

	// Final snapshot once no operation can run
	if n.snapshots != nil {
		n.snapshots.Stop()
		n.snapshots.Take()
	}

	if n.storage != nil {
		return n.storage.Close()
	}

	return nil
}
