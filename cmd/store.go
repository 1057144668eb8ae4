package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bathroom-finder/internal/config"
	"github.com/sells-group/bathroom-finder/internal/explore"
	"github.com/sells-group/bathroom-finder/internal/notify"
	"github.com/sells-group/bathroom-finder/internal/review"
	"github.com/sells-group/bathroom-finder/internal/store"
)

// app bundles the collaborators shared by every command. The notifier is
// created once so writes from the review service reach the explorer.
type app struct {
	store    store.Store
	notifier *notify.Notifier
	explorer *explore.Explorer
	reviews  *review.Service
}

func newApp(st store.Store) *app {
	n := notify.New()
	return &app{
		store:    st,
		notifier: n,
		explorer: explore.New(st, n),
		reviews:  review.NewService(st, n),
	}
}

func (a *app) Close() error {
	a.explorer.Deactivate()
	return a.store.Close()
}

// initApp opens the configured store, ensures its schema and wires the
// services around it.
func initApp(ctx context.Context, c *config.Config) (*app, error) {
	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return newApp(st), nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	case "firestore":
		return store.NewFirestore(ctx, store.FirestoreConfig{
			ProjectID:       sc.Firestore.ProjectID,
			CredentialsFile: sc.Firestore.CredentialsFile,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
