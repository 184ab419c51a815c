package main

import (
	"fmt"

	"github.com/sundeepg98/colab-bridge/internal/config"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

const defaultConfigPath = "colab-bridge.yaml"

// openStore creates the configured store backend. The memory backend only
// makes sense when client and processor share one process; it is accepted
// here for local experiments.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendMySQL:
		db, err := store.OpenMySQL(cfg.Store.Host, cfg.Store.Port, cfg.Store.Database)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("cbx: unknown store backend %q", cfg.Store.Backend)
	}
}

// storeFromConfig loads the config file and opens its store.
func storeFromConfig(configPath string) (*config.Config, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}
