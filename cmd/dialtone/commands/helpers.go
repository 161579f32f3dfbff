package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/dialtone/dialtone/pkg/compose"
	"github.com/dialtone/dialtone/pkg/config"
	"github.com/dialtone/dialtone/pkg/stores"
)

// loadDeclarations loads and validates the declaration sources, printing
// every finding. It fails when any finding is an error.
func loadDeclarations(sources []string) (*config.Declarations, error) {
	loader := config.NewLoader()
	decls, findings := loader.Load(sources)

	errorCount := 0
	for _, f := range findings {
		switch f.Severity {
		case "error":
			errorCount++
			fmt.Fprintf(os.Stderr, "error: %s\n", f.Error())
		case "warning":
			fmt.Fprintf(os.Stderr, "warning: %s\n", f.Error())
		default:
			fmt.Fprintf(os.Stderr, "info: %s\n", f.Error())
		}
	}

	if errorCount > 0 {
		return nil, fmt.Errorf("%d validation error(s)", errorCount)
	}
	return decls, nil
}

// composePlan converts declarations and composes them into a plan.
func composePlan(decls *config.Declarations) (*compose.Plan, error) {
	composeDecls, err := config.ToDeclarations(decls)
	if err != nil {
		return nil, err
	}
	return compose.NewComposer(log.Logger).Compose(composeDecls)
}

// openStore opens and migrates the state database.
func openStore(ctx context.Context) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: statePath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
