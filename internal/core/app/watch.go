package app

import (
	"context"
	"log/slog"

	"ploc/internal/core/config"
	"ploc/internal/core/watcher"
	"ploc/internal/shared/util"
)

// Watch calls run once, then again whenever Python sources under root or
// under an additional package change, until ctx is cancelled. Runs are
// spaced by at least cfg.Watch.MinInterval; a failing run is logged and the
// watch goes on.
func Watch(ctx context.Context, root string, cfg *config.Config, run func(context.Context) error) error {
	changes := make(chan []string, 1)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.ExcludeDirs, cfg.ExcludeFiles, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// a run is already queued and will see these files too
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := []string{root}
	for _, name := range util.SortedStringKeys(cfg.AdditionalPackages) {
		dirs = append(dirs, cfg.AdditionalPackages[name])
	}
	if err := w.Watch(dirs); err != nil {
		return err
	}

	limiter := util.NewIntervalLimiter(cfg.Watch.MinInterval)
	once := func() bool {
		if err := limiter.Wait(ctx, 1); err != nil {
			return false
		}
		if err := run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("analysis failed", "error", err)
		}
		return true
	}

	if !once() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			slog.Info("changes detected", "files", len(paths))
			if !once() {
				return nil
			}
		}
	}
}
