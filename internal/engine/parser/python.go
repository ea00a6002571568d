package parser

import (
	"strings"

	"ploc/internal/engine/graph"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const futureModule = "__future__"

// importBinding is one alias of an import statement and the byte span it
// occupies in the source ("X", "X as Y", "a.b as c"). Untracked bindings
// (`import a.b`) take part in rewriting but bind no name we analyse.
type importBinding struct {
	imp        graph.NameImport
	start, end uint
	untracked  bool
}

// importStatement is a module-level import statement as seen in the source.
type importStatement struct {
	start, end uint
	bindings   []importBinding
}

// PythonExtractor collects the imported and defined names of a module. Class
// and function bodies are not entered: only module-level bindings count.
type PythonExtractor struct {
	engine *ExtractorEngine
}

func NewPythonExtractor() *PythonExtractor {
	e := &PythonExtractor{}
	e.engine = NewExtractorEngine(map[string]NodeHandler{
		"import_statement":        e.extractImport,
		"import_from_statement":   e.extractFromImport,
		"future_import_statement": e.extractFutureImport,
		"class_definition":        e.extractDefinition,
		"function_definition":     e.extractDefinition,
		"assignment":              e.extractAssignment,
		"type_alias_statement":    e.extractTypeAlias,
	})
	return e
}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, loc graph.ModuleLocation) *ExtractionContext {
	ctx := newExtractionContext(loc, source)
	e.engine.Walk(ctx, root)
	return ctx
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	stmt := importStatement{start: node.StartByte(), end: node.EndByte()}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name":
			name := ctx.Name(child)
			stmt.bindings = append(stmt.bindings, importBinding{
				imp:       graph.NameImport{ExportName: name, ImportName: name},
				start:     child.StartByte(),
				end:       child.EndByte(),
				untracked: strings.Contains(name, "."), // `import a.b` binds `a`, not a name of a.b
			})
		case "aliased_import":
			name, alias := aliasParts(ctx, child)
			stmt.bindings = append(stmt.bindings, importBinding{
				imp:   graph.NameImport{ExportName: name, ImportName: alias},
				start: child.StartByte(),
				end:   child.EndByte(),
			})
		}
	}

	ctx.record(stmt)
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return true
	}

	var module graph.ModulePath
	switch moduleNode.Kind() {
	case "relative_import":
		resolved, ok := resolveRelative(ctx, moduleNode)
		if !ok {
			return true
		}
		module = resolved
	default:
		module = graph.ParseModulePath(ctx.Name(moduleNode))
	}

	e.collectFromNames(ctx, node, module)
	return true
}

func (e *PythonExtractor) extractFutureImport(ctx *ExtractionContext, node *sitter.Node) bool {
	e.collectFromNames(ctx, node, graph.ModulePath(futureModule))
	return true
}

// collectFromNames records the names listed after the `import` keyword of a
// from-import. Wildcard imports bind nothing we can track.
func (e *PythonExtractor) collectFromNames(ctx *ExtractionContext, node *sitter.Node, module graph.ModulePath) {
	stmt := importStatement{start: node.StartByte(), end: node.EndByte()}

	afterImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if !afterImport {
			afterImport = child.Kind() == "import"
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			name := ctx.Name(child)
			stmt.bindings = append(stmt.bindings, importBinding{
				imp:   graph.NameImport{Module: module, ExportName: name, ImportName: name},
				start: child.StartByte(),
				end:   child.EndByte(),
			})
		case "aliased_import":
			name, alias := aliasParts(ctx, child)
			stmt.bindings = append(stmt.bindings, importBinding{
				imp:   graph.NameImport{Module: module, ExportName: name, ImportName: alias},
				start: child.StartByte(),
				end:   child.EndByte(),
			})
		}
	}

	ctx.record(stmt)
}

func (e *PythonExtractor) extractDefinition(ctx *ExtractionContext, node *sitter.Node) bool {
	if name := ctx.Name(node.ChildByFieldName("name")); name != "" {
		ctx.Exported.Add(name)
	}
	return true
}

func (e *PythonExtractor) extractAssignment(ctx *ExtractionContext, node *sitter.Node) bool {
	for cur := node; cur != nil && cur.Kind() == "assignment"; cur = cur.ChildByFieldName("right") {
		left := cur.ChildByFieldName("left")
		if left != nil && left.Kind() == "identifier" {
			ctx.Exported.Add(ctx.Text(left))
		}
	}
	return true
}

func (e *PythonExtractor) extractTypeAlias(ctx *ExtractionContext, node *sitter.Node) bool {
	left := node.ChildByFieldName("left")
	if left == nil {
		return true
	}
	name, _, _ := strings.Cut(ctx.Name(left), "[")
	if name != "" {
		ctx.Exported.Add(name)
	}
	return true
}

func aliasParts(ctx *ExtractionContext, node *sitter.Node) (string, string) {
	return ctx.Name(node.ChildByFieldName("name")), ctx.Name(node.ChildByFieldName("alias"))
}

// resolveRelative turns `from ..a import x` into an absolute module path using
// the importing module's location. Imports escaping the scan root are dropped.
func resolveRelative(ctx *ExtractionContext, node *sitter.Node) (graph.ModulePath, bool) {
	var level int
	var rest graph.ModulePath
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import_prefix":
			level = strings.Count(ctx.Text(child), ".")
		case "dotted_name":
			rest = graph.ParseModulePath(ctx.Name(child))
		}
	}
	if level == 0 {
		return rest, !rest.IsEmpty()
	}

	pkg := ctx.Location.Path
	if !ctx.Location.IsInit {
		pkg = pkg.Parent()
	}
	base, ok := pkg.Ancestor(level - 1)
	if !ok {
		return "", false
	}
	module := base.Join(rest)
	return module, !module.IsEmpty()
}

func (c *ExtractionContext) record(stmt importStatement) {
	for _, b := range stmt.bindings {
		if !b.untracked {
			c.bind(b.imp)
		}
	}
	c.Statements = append(c.Statements, stmt)
}
