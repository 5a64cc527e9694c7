package drafts

import (
	"context"
	"fmt"

	"github.com/onclick-pay/onclick-web/internal/platform/config"
	"github.com/onclick-pay/onclick-web/internal/platform/database"
	pfirestore "github.com/onclick-pay/onclick-web/internal/platform/firestore"
)

// OpenKV connects the backend named by cfg.Backend.
func OpenKV(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryKV(), nil
	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.Open(ctx, database.Dialect(cfg.Backend), cfg.DSN)
		if err != nil {
			return nil, err
		}
		kv, err := NewSQLKV(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return kv, nil
	case config.BackendFirestore:
		provider := pfirestore.NewProvider(pfirestore.Config{ProjectID: cfg.ProjectID, EmulatorHost: cfg.EmulatorHost})
		return NewFirestoreKV(provider, cfg.Collection)
	}
	return nil, fmt.Errorf("drafts: unsupported storage backend %q", cfg.Backend)
}
