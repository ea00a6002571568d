package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"ploc/internal/engine/graph"
)

// record is the persisted projection of a module interface.
type record struct {
	ImportedNames map[string]graph.NameImport `json:"imported_names"`
	ExportedNames []string                    `json:"exported_names"`
	Submodules    []string                    `json:"submodules"`
	Timestamp     int64                       `json:"timestamp"`
}

func encodeRecord(iface *graph.ModuleInterface, modTime time.Time) ([]byte, error) {
	imported := iface.ImportedNames
	if imported == nil {
		imported = map[string]graph.NameImport{}
	}
	return json.Marshal(record{
		ImportedNames: imported,
		ExportedNames: iface.ExportedNames.Sorted(),
		Submodules:    iface.Submodules.Sorted(),
		Timestamp:     modTime.UnixNano(),
	})
}

func decodeRecord(payload []byte) (record, error) {
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return record{}, err
	}
	if err := rec.validate(); err != nil {
		return record{}, err
	}
	return rec, nil
}

func (r record) validate() error {
	if r.ImportedNames == nil || r.ExportedNames == nil || r.Submodules == nil {
		return fmt.Errorf("missing fields")
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("invalid timestamp %d", r.Timestamp)
	}
	for name, imp := range r.ImportedNames {
		if name == "" || imp.ImportName != name || imp.ExportName == "" {
			return fmt.Errorf("invalid import entry %q", name)
		}
	}
	return nil
}

func (r record) interfaceFor(loc graph.ModuleLocation) (*graph.ModuleInterface, error) {
	return graph.NewModuleInterface(loc, r.ImportedNames,
		graph.NewNameSet(r.ExportedNames...), graph.NewNameSet(r.Submodules...))
}
