package parser

import (
	"os"
	"time"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"
	"ploc/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser extracts module interfaces from Python sources and rewrites their
// import statements. It is safe for concurrent use.
type Parser struct {
	pool      *ParserPool
	extractor *PythonExtractor
}

func NewParser() *Parser {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	return &Parser{
		pool:      NewParserPool(lang),
		extractor: NewPythonExtractor(),
	}
}

// ExtractFile reads loc.File and extracts its imported and exported names.
func (p *Parser) ExtractFile(loc graph.ModuleLocation) (graph.Extracted, error) {
	content, err := os.ReadFile(loc.File)
	if err != nil {
		return graph.Extracted{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read module"), errors.CtxPath, loc.File)
	}
	return p.Extract(loc, content)
}

func (p *Parser) Extract(loc graph.ModuleLocation, content []byte) (graph.Extracted, error) {
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues("python").Observe(time.Since(start).Seconds())
	}()

	ctx, err := p.walk(loc, content)
	if err != nil {
		return graph.Extracted{}, err
	}
	return graph.Extracted{
		ImportedNames: ctx.Imported,
		ExportedNames: ctx.Exported,
	}, nil
}

func (p *Parser) walk(loc graph.ModuleLocation, content []byte) (*ExtractionContext, error) {
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, loc.File)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		err := errors.New(errors.CodeParse, "syntax error in module")
		return nil, errors.AddContext(err, errors.CtxPath, loc.File)
	}
	return p.extractor.Extract(root, content, loc), nil
}
