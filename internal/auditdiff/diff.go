package auditdiff

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxStringLen is how many characters of a string value are shown.
const MaxStringLen = 50

// FieldDiff is one row of the detail view.
type FieldDiff struct {
	Key        string
	Label      string
	Before     Value
	After      Value
	BeforeText string
	AfterText  string
	Changed    bool
}

// Result is the full comparison of two snapshots.
type Result struct {
	Fields      []FieldDiff
	BeforeCount int
	AfterCount  int
}

// Empty reports whether neither side has a visible field.
func (r Result) Empty() bool { return len(r.Fields) == 0 }

// ChangedCount is the number of rows flagged as changed.
func (r Result) ChangedCount() int {
	n := 0
	for _, f := range r.Fields {
		if f.Changed {
			n++
		}
	}
	return n
}

// Compare parses both raw payloads and diffs them.
func Compare(before, after []byte) Result {
	return Diff(ParseSnapshot(before), ParseSnapshot(after))
}

// Diff walks the union of keys, before's keys first, and renders each side.
func Diff(before, after Snapshot) Result {
	res := Result{BeforeCount: before.Len(), AfterCount: after.Len()}
	seen := make(map[string]struct{}, before.Len()+after.Len())
	keys := make([]string, 0, before.Len()+after.Len())
	for _, s := range []Snapshot{before, after} {
		for _, f := range s.Fields {
			if _, ok := seen[f.Key]; ok {
				continue
			}
			seen[f.Key] = struct{}{}
			keys = append(keys, f.Key)
		}
	}

	for _, k := range keys {
		b, a := before.Get(k), after.Get(k)
		res.Fields = append(res.Fields, FieldDiff{
			Key:        k,
			Label:      Label(k),
			Before:     b,
			After:      a,
			BeforeText: Render(b),
			AfterText:  Render(a),
			Changed:    changed(b, a),
		})
	}
	return res
}

func changed(b, a Value) bool {
	bs, bok := b.Canonical()
	as, aok := a.Canonical()
	if bok != aok {
		return true
	}
	return bs != as
}

// Render formats a value for display.
func Render(v Value) string {
	switch v.Kind {
	case Absent:
		return "Not set"
	case Null:
		return "null"
	case Bool:
		if v.Bool {
			return "Yes"
		}
		return "No"
	case Array:
		return "[" + strconv.Itoa(len(v.Items)) + " items]"
	case Object:
		return "{Object}"
	case String:
		r := []rune(v.Str)
		if len(r) > MaxStringLen {
			return string(r[:MaxStringLen]) + "..."
		}
		return v.Str
	default:
		return FormatNumber(v.Num)
	}
}

// Label splits a camelCase key into lower-case words: gamesPlayed becomes
// "games played".
func Label(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
