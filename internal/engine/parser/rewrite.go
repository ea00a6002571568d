package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"
)

type edit struct {
	start, end uint
	text       string
}

// RewriteImports replaces the given import bindings of a module. Each
// replaced binding is removed from its statement and re-imported from its new
// module under the same local name; new bindings sharing a module are grouped
// into one statement. Everything else in the source is left untouched.
//
// It fails when a replacement would change a local name, or when a requested
// replacement does not match any module-level import of the file.
func (p *Parser) RewriteImports(loc graph.ModuleLocation, content []byte, replacements map[graph.NameImport]graph.NameImport) ([]byte, error) {
	if len(replacements) == 0 {
		return content, nil
	}
	for old, repl := range replacements {
		if old.ImportName != repl.ImportName {
			err := errors.Newf(errors.CodeValidationError,
				"replacement would change name binding: %s -/> %s", old, repl)
			return nil, errors.AddContext(err, errors.CtxPath, loc.File)
		}
	}

	ctx, err := p.walk(loc, content)
	if err != nil {
		return nil, err
	}

	found := make(map[graph.NameImport]bool, len(replacements))
	edits := make([]edit, 0)
	for _, stmt := range ctx.Statements {
		edits = append(edits, rewriteStatement(content, stmt, replacements, found)...)
	}

	if missing := missingReplacements(replacements, found); len(missing) > 0 {
		err := errors.Newf(errors.CodeInternal, "remaining imports not replaced: %s", strings.Join(missing, "; "))
		return nil, errors.AddContext(err, errors.CtxPath, loc.File)
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := append([]byte(nil), content...)
	for _, e := range edits {
		var buf bytes.Buffer
		buf.Grow(len(out) - int(e.end-e.start) + len(e.text))
		buf.Write(out[:e.start])
		buf.WriteString(e.text)
		buf.Write(out[e.end:])
		out = buf.Bytes()
	}
	return out, nil
}

// rewriteStatement returns the edits moving the replaced bindings of stmt to
// new statements. A statement losing every binding is replaced as a whole;
// otherwise only the removed bindings are cut out, so kept bindings keep their
// comments and layout, and the new statements follow the statement's line.
func rewriteStatement(content []byte, stmt importStatement, replacements map[graph.NameImport]graph.NameImport, found map[graph.NameImport]bool) []edit {
	removed := make([]bool, len(stmt.bindings))
	created := make(map[graph.NameImport]bool)
	kept := 0
	for i, b := range stmt.bindings {
		repl, ok := replacements[b.imp]
		if b.untracked || !ok {
			kept++
			continue
		}
		found[b.imp] = true
		created[repl] = true
		removed[i] = true
	}
	if len(created) == 0 {
		return nil
	}

	sep := indentOf(content, stmt.start)
	added := FormatGroupedImports(created)
	if kept == 0 {
		return []edit{{start: stmt.start, end: stmt.end, text: strings.Join(added, sep)}}
	}

	edits := removeBindings(content, stmt, removed)
	at, joiner := insertionPoint(content, stmt, sep)
	return append(edits, edit{start: at, end: at, text: joiner + strings.Join(added, joiner)})
}

// removeBindings deletes the removed bindings of a statement that keeps at
// least one of them. A binding alone on its line goes with the whole line,
// trailing comma and comment included. Other bindings go with the separator
// joining them to the next kept binding, or to the previous one at the end of
// the list.
func removeBindings(content []byte, stmt importStatement, removed []bool) []edit {
	type span struct {
		start, end uint
		removed    bool
	}

	var cuts []edit
	inline := make([]span, 0, len(stmt.bindings))
	for i, b := range stmt.bindings {
		if removed[i] {
			if start, end, ok := ownLine(content, stmt, b); ok {
				cuts = append(cuts, edit{start: start, end: end})
				continue
			}
		}
		inline = append(inline, span{start: b.start, end: b.end, removed: removed[i]})
	}

	for i := 0; i < len(inline); {
		if !inline[i].removed {
			i++
			continue
		}
		j := i
		for j < len(inline) && inline[j].removed {
			j++
		}
		switch {
		case j < len(inline):
			cuts = append(cuts, edit{start: inline[i].start, end: inline[j].start})
		default:
			prev := inline[i-1]
			gap := content[prev.end:inline[i].start]
			if bytes.IndexByte(gap, '#') < 0 {
				cuts = append(cuts, edit{start: prev.end, end: inline[j-1].end})
				break
			}
			// keep the comment trailing the previous binding
			if comma := bytes.IndexByte(gap, ','); comma >= 0 {
				at := prev.end + uint(comma)
				cuts = append(cuts, edit{start: at, end: at + 1})
			}
			cuts = append(cuts, edit{start: inline[i].start, end: inline[j-1].end})
		}
		i = j
	}
	return mergeCuts(cuts)
}

// ownLine reports the line span of a binding that is the only thing on its
// line inside a multi-line statement.
func ownLine(content []byte, stmt importStatement, b importBinding) (uint, uint, bool) {
	lineStart := uint(bytes.LastIndexByte(content[:b.start], '\n') + 1)
	if lineStart <= stmt.start || len(bytes.TrimLeft(content[lineStart:b.start], " \t")) != 0 {
		return 0, 0, false
	}
	lineEnd := lineEndOf(content, b.end)
	if lineEnd >= stmt.end {
		return 0, 0, false
	}
	rest := bytes.TrimSpace(content[b.end:lineEnd])
	rest = bytes.TrimSpace(bytes.TrimPrefix(rest, []byte(",")))
	if len(rest) != 0 && rest[0] != '#' && !bytes.Equal(rest, []byte("\\")) {
		return 0, 0, false
	}
	return lineStart, lineEnd + 1, true
}

// mergeCuts joins overlapping deletions so they can be applied independently.
func mergeCuts(cuts []edit) []edit {
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start < cuts[j].start })
	merged := make([]edit, 0, len(cuts))
	for _, c := range cuts {
		if n := len(merged); n > 0 && c.start <= merged[n-1].end {
			if c.end > merged[n-1].end {
				merged[n-1].end = c.end
			}
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// insertionPoint returns where the statements replacing bindings of stmt go
// and how they are joined. They start on the next line when the rest of the
// statement's line is blank or a comment, and follow it inline otherwise.
func insertionPoint(content []byte, stmt importStatement, sep string) (uint, string) {
	if sep == "; " {
		return stmt.end, sep
	}
	lineEnd := lineEndOf(content, stmt.end)
	rest := bytes.TrimSpace(content[stmt.end:lineEnd])
	if len(rest) != 0 && rest[0] != '#' {
		return stmt.end, "; "
	}
	if lineEnd > stmt.end && content[lineEnd-1] == '\r' {
		lineEnd--
	}
	return lineEnd, sep
}

func lineEndOf(content []byte, offset uint) uint {
	if i := bytes.IndexByte(content[offset:], '\n'); i >= 0 {
		return offset + uint(i)
	}
	return uint(len(content))
}

// FormatGroupedImports renders imports as statements, one per source module,
// sorted by module then name.
func FormatGroupedImports(imps map[graph.NameImport]bool) []string {
	sorted := make([]graph.NameImport, 0, len(imps))
	for imp := range imps {
		sorted = append(sorted, imp)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].Module.Compare(sorted[j].Module); c != 0 {
			return c < 0
		}
		if sorted[i].ExportName != sorted[j].ExportName {
			return sorted[i].ExportName < sorted[j].ExportName
		}
		return sorted[i].ImportName < sorted[j].ImportName
	})

	var lines []string
	for i := 0; i < len(sorted); {
		j := i
		names := make([]string, 0)
		for ; j < len(sorted) && sorted[j].Module == sorted[i].Module; j++ {
			name := sorted[j].ExportName
			if alias := sorted[j].Alias(); alias != "" {
				name += " as " + alias
			}
			names = append(names, name)
		}
		if sorted[i].Module.IsEmpty() {
			lines = append(lines, "import "+strings.Join(names, ", "))
		} else {
			lines = append(lines, fmt.Sprintf("from %s import %s", sorted[i].Module, strings.Join(names, ", ")))
		}
		i = j
	}
	return lines
}

// indentOf returns the separator placing a new statement under the one
// starting at offset: a newline plus the same indentation, or "; " when the
// statement does not start its line.
func indentOf(content []byte, offset uint) string {
	lineStart := bytes.LastIndexByte(content[:offset], '\n') + 1
	prefix := content[lineStart:offset]
	if len(bytes.TrimLeft(prefix, " \t")) != 0 {
		return "; "
	}
	return "\n" + string(prefix)
}

func missingReplacements(replacements map[graph.NameImport]graph.NameImport, found map[graph.NameImport]bool) []string {
	var missing []string
	for old := range replacements {
		if !found[old] {
			missing = append(missing, old.String())
		}
	}
	sort.Strings(missing)
	return missing
}
