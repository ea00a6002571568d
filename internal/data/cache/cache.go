// Package cache persists module interfaces between runs, keyed by dotted
// module path. An entry records the modification time its file had when it
// was extracted and is only served while the file is not newer.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ploc/internal/core/errors"
	"ploc/internal/core/ports"
	"ploc/internal/engine/graph"
	"ploc/internal/shared/observability"
	"ploc/internal/shared/util"
)

const (
	DirName  = ".ploc_cache"
	FileName = "cache.db"
)

type Mode string

const (
	ModeOn      Mode = "on"
	ModeOff     Mode = "off"
	ModeRebuild Mode = "rebuild"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeOn, ModeOff, ModeRebuild:
		return m, nil
	case "":
		return ModeOn, nil
	default:
		return "", errors.Newf(errors.CodeValidationError, "invalid cache mode %q (expected on, off or rebuild)", s)
	}
}

// Path returns the database location used for root.
func Path(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// Open selects the cache strategy for mode. With ModeRebuild every stored
// entry is dropped before the cache is returned.
func Open(ctx context.Context, root string, mode Mode) (ports.InterfaceCache, error) {
	if mode == ModeOff {
		return disabledCache{}, nil
	}

	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create cache directory"), errors.CtxPath, dir)
	}
	gitignore := filepath.Join(dir, ".gitignore")
	if err := util.EnsureFile(gitignore, "*\n", 0o644); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write cache .gitignore"), errors.CtxPath, gitignore)
	}

	store, err := openRecovering(ctx, Path(root))
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open interface cache"), errors.CtxPath, Path(root))
	}

	if mode == ModeRebuild {
		n, err := store.Purge(ctx)
		if err != nil {
			_ = store.Close()
			return nil, errors.Wrap(err, errors.CodeInternal, "purge interface cache")
		}
		slog.Info("interface cache purged", "entries", n, "path", store.Path())
	} else if n, err := store.Count(ctx); err == nil {
		slog.Debug("interface cache opened", "entries", n, "path", store.Path())
	}
	return &storeCache{store: store}, nil
}

// With opens the cache, runs fn and always closes the cache afterwards.
func With(ctx context.Context, root string, mode Mode, fn func(ports.InterfaceCache) error) (err error) {
	c, err := Open(ctx, root, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.CodeInternal, "close interface cache")
		}
	}()
	return fn(c)
}

// openRecovering replaces a database file that SQLite refuses to read.
func openRecovering(ctx context.Context, path string) (*Store, error) {
	store, err := OpenStore(ctx, path)
	if err == nil || !IsCorruptError(err) {
		return store, err
	}
	slog.Warn("interface cache database is corrupted, recreating it", "path", path, "error", err)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if rmErr := os.Remove(path + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove corrupted cache: %w", rmErr)
		}
	}
	return OpenStore(ctx, path)
}

var (
	_ ports.InterfaceCache = disabledCache{}
	_ ports.InterfaceCache = (*storeCache)(nil)
)

type disabledCache struct{}

func (disabledCache) Get(context.Context, graph.ModuleLocation) (*graph.ModuleInterface, error) {
	return nil, nil
}

func (disabledCache) Set(context.Context, *graph.ModuleInterface, time.Time) error { return nil }

func (disabledCache) Invalidate(context.Context, graph.ModuleLocation) error { return nil }

func (disabledCache) Close() error { return nil }

type storeCache struct {
	store *Store
}

func (c *storeCache) Get(ctx context.Context, loc graph.ModuleLocation) (*graph.ModuleInterface, error) {
	key := loc.Path.String()
	payload, found, err := c.store.Load(ctx, key)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read interface cache"), errors.CtxModule, key)
	}
	if !found {
		observability.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	rec, err := decodeRecord(payload)
	var iface *graph.ModuleInterface
	if err == nil {
		iface, err = rec.interfaceFor(loc)
	}
	if err != nil {
		warn := errors.AddContext(errors.Wrap(err, errors.CodeCacheCorruption, "invalid cache entry"), errors.CtxModule, key)
		slog.Warn("discarding corrupted cache entry", "module", key, "error", warn)
		observability.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		if err := c.store.Delete(ctx, key); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "delete corrupted cache entry"), errors.CtxModule, key)
		}
		return nil, nil
	}

	info, err := os.Stat(loc.File)
	if err != nil || rec.Timestamp < info.ModTime().UnixNano() {
		observability.CacheLookupsTotal.WithLabelValues("stale").Inc()
		return nil, nil
	}
	observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return iface, nil
}

func (c *storeCache) Set(ctx context.Context, iface *graph.ModuleInterface, modTime time.Time) error {
	key := iface.Location.Path.String()
	payload, err := encodeRecord(iface, modTime)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "encode cache entry"), errors.CtxModule, key)
	}
	if err := c.store.Save(ctx, key, payload); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write interface cache"), errors.CtxModule, key)
	}
	return nil
}

func (c *storeCache) Invalidate(ctx context.Context, loc graph.ModuleLocation) error {
	key := loc.Path.String()
	if err := c.store.Delete(ctx, key); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "invalidate cache entry"), errors.CtxModule, key)
	}
	return nil
}

func (c *storeCache) Close() error {
	return c.store.Close()
}
