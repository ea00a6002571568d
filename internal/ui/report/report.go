// # internal/ui/report/report.go
package report

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"ploc/internal/core/errors"
	"ploc/internal/engine/graph"
	"ploc/internal/shared/util"

	"github.com/charmbracelet/lipgloss"
)

// Reporter prints plans and run outcomes. Colors follow the capabilities of
// the writer it was created for, so a buffer or a pipe gets plain text.
type Reporter struct {
	w       io.Writer
	file    lipgloss.Style
	removed lipgloss.Style
	added   lipgloss.Style
	summary lipgloss.Style
	hint    lipgloss.Style
	failure lipgloss.Style
	detail  lipgloss.Style
}

func NewReporter(w io.Writer) *Reporter {
	r := lipgloss.NewRenderer(w)
	return &Reporter{
		w:       w,
		file:    r.NewStyle().Foreground(lipgloss.Color("6")),
		removed: r.NewStyle().Foreground(lipgloss.Color("1")),
		added:   r.NewStyle().Foreground(lipgloss.Color("2")),
		summary: r.NewStyle().Foreground(lipgloss.Color("3")),
		hint:    r.NewStyle().Foreground(lipgloss.Color("8")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		detail:  r.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true),
	}
}

// Replacements prints, per file, the import lines to remove and the ones to
// add, followed by a one-line summary.
func (r *Reporter) Replacements(replacements map[graph.ModuleLocation]map[graph.NameImport]graph.NameImport, filesCount int, elapsed time.Duration) {
	locs := make([]graph.ModuleLocation, 0, len(replacements))
	for loc := range replacements {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].File < locs[j].File })

	count := 0
	for _, loc := range locs {
		repl := replacements[loc]
		count += len(repl)
		olds := make([]graph.NameImport, 0, len(repl))
		news := make([]graph.NameImport, 0, len(repl))
		for old, repl := range repl {
			olds = append(olds, old)
			news = append(news, repl)
		}

		fmt.Fprintln(r.w, r.file.Render(loc.File+":"))
		for _, line := range FormatNameImports(olds) {
			fmt.Fprintln(r.w, r.removed.Render("  - "+line))
		}
		for _, line := range FormatNameImports(news) {
			fmt.Fprintln(r.w, r.added.Render("  + "+line))
		}
		fmt.Fprintln(r.w)
	}

	fmt.Fprintln(r.w, r.summary.Render(fmt.Sprintf("%d indirect import(s) found in %d file(s) in %.2fs.",
		count, filesCount, elapsed.Seconds())))
}

// Fixed prints the outcome of a fix run.
func (r *Reporter) Fixed(files int, elapsed time.Duration) {
	fmt.Fprintln(r.w, r.summary.Render(fmt.Sprintf("Indirect import(s) fixed in %d file(s) in %.2fs.", files, elapsed.Seconds())))
	if files > 0 {
		fmt.Fprintln(r.w, r.hint.Render("You may want to run your formatter / import sorter!"))
	}
}

// Error prints a failed run: the message, then the context of domain errors
// as sorted key=value pairs.
func (r *Reporter) Error(err error) {
	var de *errors.DomainError
	if !stderrors.As(err, &de) {
		fmt.Fprintln(r.w, r.failure.Render("error: "+err.Error()))
		return
	}
	msg := de.Message
	if de.Err != nil {
		msg += ": " + de.Err.Error()
	}
	fmt.Fprintln(r.w, r.failure.Render(fmt.Sprintf("error [%s]: %s", de.Code, msg)))
	if ctx := de.ContextString(); ctx != "" {
		fmt.Fprintln(r.w, r.detail.Render("  "+ctx))
	}
}

// Interface prints a module interface in a stable order.
func (r *Reporter) Interface(iface *graph.ModuleInterface) {
	name := iface.Location.Path.String()
	if name == "" {
		name = "<root>"
	}
	fmt.Fprintln(r.w, r.file.Render(fmt.Sprintf("%s (%s)", name, iface.Location.File)))

	fmt.Fprintln(r.w, "imported names:")
	for _, local := range util.SortedStringKeys(iface.ImportedNames) {
		fmt.Fprintf(r.w, "  %s: %s\n", local, iface.ImportedNames[local])
	}
	fmt.Fprintln(r.w, "exported names:")
	for _, name := range iface.ExportedNames.Sorted() {
		fmt.Fprintf(r.w, "  %s\n", name)
	}
	if iface.Location.IsInit {
		fmt.Fprintln(r.w, "submodules:")
		for _, name := range iface.Submodules.Sorted() {
			fmt.Fprintf(r.w, "  %s\n", name)
		}
	}
}

// FormatNameImports renders imports as one line per (module, alias) group,
// sorted by module then alias. Names of a group keep their sorted order.
func FormatNameImports(imps []graph.NameImport) []string {
	sorted := append([]graph.NameImport(nil), imps...)
	sort.Slice(sorted, func(i, j int) bool { return graph.CompareNameImports(sorted[i], sorted[j]) < 0 })

	var lines []string
	for i := 0; i < len(sorted); {
		j := i
		names := make([]string, 0)
		for ; j < len(sorted) && sorted[j].Module == sorted[i].Module && sorted[j].Alias() == sorted[i].Alias(); j++ {
			names = append(names, sorted[j].ExportName)
		}

		var b strings.Builder
		if !sorted[i].Module.IsEmpty() {
			fmt.Fprintf(&b, "from %s ", sorted[i].Module)
		}
		b.WriteString("import ")
		b.WriteString(strings.Join(names, ", "))
		if alias := sorted[i].Alias(); alias != "" {
			b.WriteString(" as " + alias)
		}
		lines = append(lines, b.String())
		i = j
	}
	return lines
}
