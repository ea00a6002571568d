package ports

import (
	"context"
	"time"

	"ploc/internal/engine/graph"
)

// InterfaceExtractor reads one module file and reports the names it imports
// and defines. Implementations must be safe for concurrent use.
type InterfaceExtractor interface {
	ExtractFile(loc graph.ModuleLocation) (graph.Extracted, error)
}

// ImportRewriter rewrites the import statements of one module's source.
type ImportRewriter interface {
	RewriteImports(loc graph.ModuleLocation, content []byte, replacements map[graph.NameImport]graph.NameImport) ([]byte, error)
}

// InterfaceCache stores module interfaces between runs. Get returns nil on a
// miss. Set records the file modification time observed before the interface
// was extracted; an entry stays valid while the file is not newer than that.
type InterfaceCache interface {
	Get(ctx context.Context, loc graph.ModuleLocation) (*graph.ModuleInterface, error)
	Set(ctx context.Context, iface *graph.ModuleInterface, modTime time.Time) error
	Invalidate(ctx context.Context, loc graph.ModuleLocation) error
	Close() error
}

// Stage is one step of an analysis run, as shown to the user.
type Stage string

const (
	StageDiscover   Stage = "discover"
	StageExtract    Stage = "extract"
	StageAdditional Stage = "additional"
	StageAnalyse    Stage = "analyse"
)

// Progress receives run progress. Advance may be called from several
// goroutines at once.
type Progress interface {
	Start(stage Stage, label string, total int)
	Advance(stage Stage, n int)
	Finish(stage Stage)
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(Stage, string, int) {}
func (NopProgress) Advance(Stage, int)       {}
func (NopProgress) Finish(Stage)             {}
