package auditdiff

import (
	"bytes"
	"strconv"
)

// Hidden lists the bookkeeping fields never shown in the detail view.
var Hidden = []string{"updatedAt", "isDeleted", "__v", "_id", "id", "createdAt", "recordedBy"}

func hidden(key string) bool {
	for _, h := range Hidden {
		if h == key {
			return true
		}
	}
	return false
}

// Snapshot is the visible content of one side of an audit entry.
type Snapshot struct {
	Fields []Field
}

// Len is the number of visible fields.
func (s Snapshot) Len() int { return len(s.Fields) }

// Get returns the value for key, Absent when missing.
func (s Snapshot) Get(key string) Value {
	for _, f := range s.Fields {
		if f.Key == key {
			return f.Value
		}
	}
	return Value{Kind: Absent}
}

// ParseSnapshot reads a raw before/after payload. It never fails:
//   - missing or falsy payloads give an empty snapshot
//   - a string is parsed as JSON; if that fails the raw text is kept under "data"
//   - objects keep their visible keys, arrays are keyed by index
//   - any other value is kept under "value"
func ParseSnapshot(raw []byte) Snapshot {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Snapshot{}
	}
	v, ok := Decode(raw)
	if !ok || !v.Truthy() {
		return Snapshot{}
	}
	if v.Kind == String {
		inner, ok := Decode([]byte(v.Str))
		if !ok {
			return Snapshot{Fields: []Field{{Key: "data", Value: v}}}
		}
		v = inner
	}
	return fromValue(v)
}

func fromValue(v Value) Snapshot {
	switch v.Kind {
	case Absent, Null:
		return Snapshot{}
	case Object:
		fields := make([]Field, 0, len(v.Fields))
		for _, f := range v.Fields {
			if !hidden(f.Key) {
				fields = append(fields, f)
			}
		}
		return Snapshot{Fields: fields}
	case Array:
		fields := make([]Field, 0, len(v.Items))
		for i, item := range v.Items {
			fields = append(fields, Field{Key: strconv.Itoa(i), Value: item})
		}
		return Snapshot{Fields: fields}
	default:
		return Snapshot{Fields: []Field{{Key: "value", Value: v}}}
	}
}
