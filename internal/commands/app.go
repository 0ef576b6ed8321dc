package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/colonyops/inbox/internal/cache"
	"github.com/colonyops/inbox/internal/core/config"
	"github.com/colonyops/inbox/internal/core/eventbus"
	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/data/db"
	"github.com/colonyops/inbox/internal/data/stores"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/internal/remote"
	"github.com/colonyops/inbox/internal/store/jsonfile"
	redisstore "github.com/colonyops/inbox/internal/store/redis"
	"github.com/rs/zerolog/log"
)

// App holds the inbox service shared by all commands. It is opened lazily on
// first use so commands that never touch notifications (config, serve) do not
// open the store.
type App struct {
	flags *Flags

	mu      sync.Mutex
	cache   *cache.Cache
	client  *remote.Client
	svc     *inbox.Service
	closers []func() error

	storageErrors atomic.Int64
}

// NewApp creates an unopened App bound to flags.
func NewApp(flags *Flags) *App {
	return &App{flags: flags}
}

// Service opens the store, cache and remote client on first call and returns
// the inbox service.
func (a *App) Service(ctx context.Context) (*inbox.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		return a.svc, nil
	}

	cfg := a.flags.Config
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	// Built before the store: an API config error must leave nothing open.
	var client *remote.Client
	if cfg.RemoteEnabled() {
		var err error
		client, err = remote.New(cfg.API, remote.WithLogger(logging.Component("remote")))
		if err != nil {
			return nil, fmt.Errorf("create api client: %w", err)
		}
	}

	store, closer, err := OpenStore(ctx, cfg.Store.Backend, cfg, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.cache = cache.New(ctx, store,
		cache.WithNamespace(cfg.Store.Namespace),
		cache.WithLogger(logging.Component("cache")),
		cache.WithErrorHook(func(*cache.StorageError) { a.storageErrors.Add(1) }),
	)
	eventbus.RegisterDebugLogger(a.cache.Listeners(), logging.Component("eventbus"))

	var rem inbox.Remote
	if client != nil {
		a.client = client
		rem = client
	}

	svc := inbox.New(a.cache, rem,
		inbox.WithLogger(logging.Component("inbox")),
		inbox.WithSeeding(cfg.Fallback.SeedSamples),
		inbox.WithSyncTimeout(cfg.Fallback.SyncTimeout),
	)
	eventbus.RegisterDebugLogger(svc.ModeListeners(), logging.Component("eventbus"))

	if a.flags.Offline {
		svc.ForceLocalMode()
	}

	a.svc = svc
	return svc, nil
}

// Client returns the API client, or nil when no base URL is configured. Only
// valid after Service.
func (a *App) Client() *remote.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// StorageErrors returns how many storage failures the cache has absorbed.
func (a *App) StorageErrors() int64 {
	return a.storageErrors.Load()
}

// Close waits for pending remote pushes and releases the store.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.svc != nil {
		a.svc.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the durable store for backend under dataDir. For the client
// dataDir is cfg.DataDir, so the file backend lands in cfg.StoreDir(). The
// returned closer may be nil.
func OpenStore(ctx context.Context, backend config.Backend, cfg *config.Config, dataDir string) (kv.KV, func() error, error) {
	switch backend {
	case config.BackendMemory:
		return kv.NewMemory(), nil, nil
	case config.BackendFile:
		return jsonfile.NewStore(filepath.Join(dataDir, "store")), nil, nil
	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.NewStore(client, "inbox:")
		return store, store.Close, nil
	case config.BackendSQLite, "":
		database, err := openSQLite(dataDir)
		if err != nil {
			return nil, nil, err
		}
		return stores.NewKVStore(database), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// openSQLite opens the database, moving a corrupt file aside and starting
// fresh once if needed.
func openSQLite(dataDir string) (*db.DB, error) {
	opts := db.DefaultOpenOptions()
	opts.Logger = logging.Component("db")

	database, err := db.Open(dataDir, opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, err
	}

	log.Warn().Err(err).Str("data_dir", dataDir).Msg("database corrupt, moving it aside")
	if rerr := stores.RecoverFromCorruption(dataDir); rerr != nil {
		return nil, errors.Join(err, rerr)
	}
	return db.Open(dataDir, opts)
}
