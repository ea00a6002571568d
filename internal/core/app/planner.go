package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"ploc/internal/core/config"
	"ploc/internal/core/errors"
	"ploc/internal/core/ports"
	"ploc/internal/data/cache"
	"ploc/internal/engine/graph"
	"ploc/internal/engine/resolver"
	"ploc/internal/shared/observability"
	"ploc/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Planner runs a full analysis of a source tree and builds the replacement
// plan for its indirect imports.
type Planner struct {
	extractor ports.InterfaceExtractor
	progress  ports.Progress
}

func NewPlanner(extractor ports.InterfaceExtractor, progress ports.Progress) *Planner {
	if progress == nil {
		progress = ports.NopProgress{}
	}
	return &Planner{extractor: extractor, progress: progress}
}

// Analyse locates the modules under root, obtains their interfaces and
// resolves every first-party import. Additional packages from cfg take part
// in resolution but their own imports are never planned.
func (p *Planner) Analyse(ctx context.Context, root string, cfg *config.Config) (*Plan, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "Planner.Analyse", trace.WithAttributes(
		attribute.String("ploc.root", root),
		attribute.String("ploc.run_id", runID),
	))
	defer span.End()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "resolve root"), errors.CtxPath, root)
	}
	mode, err := cache.ParseMode(cfg.Cache)
	if err != nil {
		return nil, err
	}
	log := slog.With("run_id", runID)
	log.Debug("analysis started", "path", root, "mode", mode)

	opts := graph.LocateOptions{ExcludeDirs: cfg.ExcludeDirs, ExcludeFiles: cfg.ExcludeFiles}
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	var locations map[graph.ModulePath]graph.ModuleLocation
	err = p.stage(ctx, ports.StageDiscover, func(ctx context.Context) error {
		p.progress.Start(ports.StageDiscover, "Discovering modules...", 0)
		var err error
		locations, err = graph.Locate(root, "", opts)
		observability.ModulesDiscovered.WithLabelValues("primary").Set(float64(len(locations)))
		p.progress.Advance(ports.StageDiscover, len(locations))
		return err
	})
	if err != nil {
		return nil, err
	}

	var interfaces graph.Interfaces
	err = p.stage(ctx, ports.StageExtract, func(ctx context.Context) error {
		p.progress.Start(ports.StageExtract, "Extracting modules interfaces...", len(locations))
		var err error
		interfaces, err = p.interfaces(ctx, root, locations, mode, jobs, ports.StageExtract)
		return err
	})
	if err != nil {
		return nil, err
	}

	firstParty := interfaces.TopLevelPackages()
	all := make(graph.Interfaces, len(interfaces))
	for path, iface := range interfaces {
		all[path] = iface
	}

	for _, name := range util.SortedStringKeys(cfg.AdditionalPackages) {
		dir := cfg.AdditionalPackages[name]
		if firstParty.Has(name) {
			err := errors.Newf(errors.CodeConfigurationConflict,
				"module %s was passed as additional package, but is a direct sub-module of %s: conflict", name, root)
			return nil, errors.AddContext(err, errors.CtxModule, name)
		}
		err = p.stage(ctx, ports.StageAdditional, func(ctx context.Context) error {
			addLocations, err := graph.Locate(dir, graph.ModulePath(name), opts)
			if err != nil {
				return err
			}
			observability.ModulesDiscovered.WithLabelValues("additional").Add(float64(len(addLocations)))
			p.progress.Start(ports.StageAdditional, "Extracting interfaces of additional module "+name+"...", len(addLocations))
			addInterfaces, err := p.interfaces(ctx, dir, addLocations, mode, jobs, ports.StageAdditional)
			if err != nil {
				return err
			}
			for path, iface := range addInterfaces {
				all[path] = iface
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		firstParty.Add(name)
		log.Debug("additional package loaded", "module", name, "path", dir)
	}

	plan := newPlan(len(locations))
	err = p.stage(ctx, ports.StageAnalyse, func(ctx context.Context) error {
		p.progress.Start(ports.StageAnalyse, "Analyzing all imports...", len(interfaces))
		r := resolver.New(all)
		for _, path := range interfaces.SortedPaths() {
			iface := interfaces[path]
			for _, imp := range iface.SortedImports() {
				if imp.Module.IsEmpty() || !firstParty.Has(imp.Module.Top()) {
					continue
				}
				repl, replaced, err := r.Resolve(imp)
				if err != nil {
					err = errors.AddContext(err, errors.CtxPath, iface.Location.File)
					return errors.AddContext(err, errors.CtxImport, imp.String())
				}
				if replaced {
					plan.add(iface.Location, imp, repl)
				}
			}
			p.progress.Advance(ports.StageAnalyse, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	plan.Elapsed = time.Since(started)
	observability.ReplacementsFound.Set(float64(plan.Count()))
	span.SetAttributes(attribute.Int("ploc.replacements", plan.Count()))
	log.Debug("analysis finished", "files", plan.FilesCount, "replacements", plan.Count(), "elapsed", plan.Elapsed)
	return plan, nil
}

// stage runs fn as a traced and timed step of the run.
func (p *Planner) stage(ctx context.Context, stage ports.Stage, fn func(context.Context) error) error {
	ctx, span := observability.Tracer.Start(ctx, "Planner."+string(stage))
	defer span.End()
	defer p.progress.Finish(stage)

	start := time.Now()
	err := fn(ctx)
	observability.AnalysisDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// interfaces returns one interface per location, from the cache of root when
// possible. Cache misses are extracted in parallel and the cache itself is
// only used from this goroutine. A failing file does not stop the others, so
// every successful extraction is stored before the first error is returned.
// Entries are stamped with the file's modification time read before parsing,
// so a write racing the extraction leaves the entry stale.
func (p *Planner) interfaces(ctx context.Context, root string, locations map[graph.ModulePath]graph.ModuleLocation, mode cache.Mode, jobs int, stage ports.Stage) (graph.Interfaces, error) {
	out := make(graph.Interfaces, len(locations))
	err := cache.With(ctx, root, mode, func(c ports.InterfaceCache) error {
		pending := make([]graph.ModuleLocation, 0)
		for _, loc := range sortedLocations(locations) {
			if err := ctx.Err(); err != nil {
				return err
			}
			iface, err := c.Get(ctx, loc)
			if err != nil {
				return err
			}
			// a package whose directory gained or lost modules keeps its
			// __init__.py mtime, so cached submodules are checked as well
			if iface == nil || !iface.Submodules.Equal(graph.SubmodulesOf(loc, locations)) {
				pending = append(pending, loc)
				continue
			}
			out[loc.Path] = iface
			p.progress.Advance(stage, 1)
		}

		extracted := make([]graph.Extracted, len(pending))
		modTimes := make([]time.Time, len(pending))
		done := make([]bool, len(pending))
		var g errgroup.Group
		g.SetLimit(jobs)
		for i, loc := range pending {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				info, err := os.Stat(loc.File)
				if err != nil {
					return errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "stat module"), errors.CtxPath, loc.File)
				}
				ex, err := p.extractor.ExtractFile(loc)
				if err != nil {
					return err
				}
				extracted[i], modTimes[i], done[i] = ex, info.ModTime(), true
				p.progress.Advance(stage, 1)
				return nil
			})
		}
		waitErr := g.Wait()

		for i, loc := range pending {
			if !done[i] {
				continue
			}
			iface, err := graph.BuildInterface(loc, extracted[i], locations)
			if err != nil {
				return err
			}
			if err := c.Set(ctx, iface, modTimes[i]); err != nil {
				return err
			}
			out[loc.Path] = iface
		}
		return waitErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func sortedLocations(locations map[graph.ModulePath]graph.ModuleLocation) []graph.ModuleLocation {
	out := make([]graph.ModuleLocation, 0, len(locations))
	for _, loc := range locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.Compare(out[j].Path) < 0 })
	return out
}
