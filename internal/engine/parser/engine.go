package parser

import (
	"strings"

	"ploc/internal/engine/graph"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for the Python extractor.
// Returns true if the walker should not descend into the node's children.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the state shared by node handlers during one walk.
type ExtractionContext struct {
	Source   []byte
	Location graph.ModuleLocation

	Imported   map[string]graph.NameImport
	Exported   graph.NameSet
	Statements []importStatement
}

func newExtractionContext(loc graph.ModuleLocation, source []byte) *ExtractionContext {
	return &ExtractionContext{
		Source:   source,
		Location: loc,
		Imported: make(map[string]graph.NameImport),
		Exported: make(graph.NameSet),
	}
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	if handler, ok := e.handlers[node.Kind()]; ok {
		if handler(ctx, node) {
			return
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.Walk(ctx, node.Child(i))
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// Name returns the node text with any whitespace removed, which is how
// dotted names split over continuation lines are normalised.
func (c *ExtractionContext) Name(node *sitter.Node) string {
	return strings.Join(strings.Fields(c.Text(node)), "")
}

func (c *ExtractionContext) bind(imp graph.NameImport) {
	// Last binding of a local name wins, as at runtime.
	c.Imported[imp.ImportName] = imp
}
