package app

import (
	"sort"
	"time"

	"ploc/internal/engine/graph"
)

// Plan maps each importing module to the imports that must be replaced in
// it. Modules without replacements have no entry.
type Plan struct {
	Replacements map[graph.ModuleLocation]map[graph.NameImport]graph.NameImport
	FilesCount   int
	Elapsed      time.Duration
}

func newPlan(filesCount int) *Plan {
	return &Plan{
		Replacements: make(map[graph.ModuleLocation]map[graph.NameImport]graph.NameImport),
		FilesCount:   filesCount,
	}
}

func (p *Plan) add(loc graph.ModuleLocation, old, repl graph.NameImport) {
	m, ok := p.Replacements[loc]
	if !ok {
		m = make(map[graph.NameImport]graph.NameImport)
		p.Replacements[loc] = m
	}
	m[old] = repl
}

// Count returns the number of planned replacements over all files.
func (p *Plan) Count() int {
	n := 0
	for _, m := range p.Replacements {
		n += len(m)
	}
	return n
}

func (p *Plan) Empty() bool {
	return len(p.Replacements) == 0
}

// Locations returns the modules with replacements, ordered by file.
func (p *Plan) Locations() []graph.ModuleLocation {
	out := make([]graph.ModuleLocation, 0, len(p.Replacements))
	for loc := range p.Replacements {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}
