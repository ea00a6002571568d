package app

import (
	"context"
	"log/slog"
	"os"

	"ploc/internal/core/config"
	"ploc/internal/core/errors"
	"ploc/internal/core/ports"
	"ploc/internal/data/cache"
	"ploc/internal/shared/observability"
	"ploc/internal/shared/util"
)

// Fix applies plan to the tree at root and drops the cache entries of the
// rewritten modules from that tree's cache.
func Fix(ctx context.Context, root string, cfg *config.Config, plan *Plan, rewriter ports.ImportRewriter) (int, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	mode, err := cache.ParseMode(cfg.Cache)
	if err != nil {
		return 0, err
	}
	if mode == cache.ModeRebuild {
		// the analysis already rebuilt it
		mode = cache.ModeOn
	}

	var written int
	err = cache.With(ctx, root, mode, func(c ports.InterfaceCache) error {
		var err error
		written, err = ApplyPlan(ctx, plan, rewriter, c)
		return err
	})
	return written, err
}

// ApplyPlan rewrites every file of the plan in place, keeping its mode, and
// returns how many files were written. Each rewritten module is invalidated
// in c. Files are handled in plan order and the first failure stops the run.
func ApplyPlan(ctx context.Context, plan *Plan, rewriter ports.ImportRewriter, c ports.InterfaceCache) (int, error) {
	ctx, span := observability.Tracer.Start(ctx, "ApplyPlan")
	defer span.End()

	written := 0
	for _, loc := range plan.Locations() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		content, err := os.ReadFile(loc.File)
		if os.IsNotExist(err) {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read module"), errors.CtxPath, loc.File)
		}
		if err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read module"), errors.CtxPath, loc.File)
		}

		out, err := rewriter.RewriteImports(loc, content, plan.Replacements[loc])
		if err != nil {
			return written, err
		}
		if err := util.ReplaceFile(loc.File, out); err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write module"), errors.CtxPath, loc.File)
		}

		written++
		if err := c.Invalidate(ctx, loc); err != nil {
			return written, err
		}
		observability.FilesRewrittenTotal.Inc()
		slog.Debug("module rewritten", "path", loc.File, "replacements", len(plan.Replacements[loc]))
	}
	return written, nil
}
