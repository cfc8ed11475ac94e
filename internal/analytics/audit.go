package analytics

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gamezone/internal/core"
)

// All is the select value meaning "no filter".
const All = "all"

// PerformerOption is one entry of the admin filter dropdown.
type PerformerOption struct {
	ID   string
	Name string
}

// FilterOptions are the distinct values offered by the audit filter dropdowns.
type FilterOptions struct {
	Performers []PerformerOption
	Actions    []string
	Entities   []string
}

// AuditOptions collects the dropdown values from entries. Only populated
// performers with a name are offered, deduplicated by id and sorted by name.
// Actions and entities are deduplicated and sorted lexically.
func AuditOptions(entries []core.AuditEntry) FilterOptions {
	performers := make(map[string]int)
	var opts FilterOptions
	actions := make(map[string]struct{})
	entities := make(map[string]struct{})

	for _, e := range entries {
		if p := e.PerformedBy; p.Embedded && p.Name != "" {
			if i, ok := performers[p.ID]; ok {
				opts.Performers[i].Name = p.Name
			} else {
				performers[p.ID] = len(opts.Performers)
				opts.Performers = append(opts.Performers, PerformerOption{ID: p.ID, Name: p.Name})
			}
		}
		if e.Action != "" {
			if _, ok := actions[e.Action]; !ok {
				actions[e.Action] = struct{}{}
				opts.Actions = append(opts.Actions, e.Action)
			}
		}
		if e.Entity != "" {
			if _, ok := entities[e.Entity]; !ok {
				entities[e.Entity] = struct{}{}
				opts.Entities = append(opts.Entities, e.Entity)
			}
		}
	}

	col := collate.New(language.English)
	sort.SliceStable(opts.Performers, func(i, j int) bool {
		return col.CompareString(opts.Performers[i].Name, opts.Performers[j].Name) < 0
	})
	sort.Strings(opts.Actions)
	sort.Strings(opts.Entities)
	return opts
}

// AuditFilter holds the four audit table predicates.
type AuditFilter struct {
	Performer string
	Action    string
	Entity    string
	Search    string
}

// DefaultAuditFilter matches every entry.
func DefaultAuditFilter() AuditFilter {
	return AuditFilter{Performer: All, Action: All, Entity: All}
}

// Normalize treats empty selects as "all".
func (f AuditFilter) Normalize() AuditFilter {
	if f.Performer == "" {
		f.Performer = All
	}
	if f.Action == "" {
		f.Action = All
	}
	if f.Entity == "" {
		f.Entity = All
	}
	return f
}

// Clear resets every predicate.
func (f *AuditFilter) Clear() {
	*f = DefaultAuditFilter()
}

// Active reports whether any dropdown filter is applied.
func (f AuditFilter) Active() bool {
	f = f.Normalize()
	return f.Performer != All || f.Action != All || f.Entity != All
}

// Match applies the three exact-match predicates and the free-text search.
func (f AuditFilter) Match(e core.AuditEntry) bool {
	f = f.Normalize()
	if f.Performer != All && e.PerformedBy.ID != f.Performer {
		return false
	}
	if f.Action != All && e.Action != f.Action {
		return false
	}
	if f.Entity != All && e.Entity != f.Entity {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	for _, field := range []string{e.PerformedBy.Name, e.Entity, e.EntityID, e.Action} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// FilterAudit returns the matching entries in their original order.
func FilterAudit(entries []core.AuditEntry, f AuditFilter) []core.AuditEntry {
	out := make([]core.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
