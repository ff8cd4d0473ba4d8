// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/config"
)

// DBOpener opens the relational database described by cfg.
type DBOpener func(cfg config.SQLiteConfig) (ports.RelationalDB, error)

// InitHandler handles workspace initialization.
type InitHandler struct {
	openDB DBOpener
}

// NewInitHandler creates a new init handler.
func NewInitHandler(openDB DBOpener) *InitHandler {
	return &InitHandler{
		openDB: openDB,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath   string
	DatabasePath string
}

// Handle writes the default configuration under basePath and creates the
// database schema.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("tracker already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if h.openDB == nil {
		return nil, errors.New("no database opener configured")
	}
	db, err := h.openDB(cfg.SQLite)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: cfg.SQLite.Path,
	}, nil
}
