// Package stores provides the persistence layer for apply runs, provisioned
// resource identities, and published bot versions.
//
// The SQLite implementation keeps a local state database so repeated applies
// can correlate declared resources with the identities a provider assigned
// them, and so published bot versions and their alias bindings survive
// process restarts. Schema changes are embedded as golang-migrate migrations
// and applied by Migrate.
//
// Usage:
//
//	store, err := stores.NewSQLiteStore(stores.Config{Path: "dialtone.db"})
//	if err != nil {
//	    return err
//	}
//	if err := store.Init(ctx); err != nil {
//	    return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//	    return err
//	}
package stores
