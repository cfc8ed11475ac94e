// Package auditdiff compares the before/after snapshots stored on audit
// entries and renders them field by field.
package auditdiff

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Absent Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "absent"
	}
}

// Field is one key of an object value. Objects keep their key order.
type Field struct {
	Key   string
	Value Value
}

// Value is a decoded JSON value, or Absent when a key is missing.
type Value struct {
	Kind   Kind
	Bool   bool
	Num    float64
	Str    string
	Items  []Value
	Fields []Field
}

// Truthy follows the usual loose rules: absent, null, false, 0 and "" are falsy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Absent, Null:
		return false
	case Bool:
		return v.Bool
	case Number:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case String:
		return v.Str != ""
	default:
		return true
	}
}

// Decode parses data into a Value. Object keys follow the enumeration order
// of a JavaScript object: integer-like keys ascending, then the rest in
// insertion order. A repeated key keeps its first position and last value.
func Decode(data []byte) (Value, bool) {
	if !json.Valid(data) {
		return Value{}, false
	}
	iter := jsoniter.ParseBytes(jsoniter.ConfigCompatibleWithStandardLibrary, data)
	v := readValue(iter)
	if iter.Error != nil {
		return Value{}, false
	}
	return v, true
}

func readValue(iter *jsoniter.Iterator) Value {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return Value{Kind: Null}
	case jsoniter.BoolValue:
		return Value{Kind: Bool, Bool: iter.ReadBool()}
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			// Out of range literals overflow to infinity like a browser would.
			f = math.Inf(1)
			if strings.HasPrefix(string(n), "-") {
				f = math.Inf(-1)
			}
		}
		return Value{Kind: Number, Num: f}
	case jsoniter.StringValue:
		return Value{Kind: String, Str: iter.ReadString()}
	case jsoniter.ArrayValue:
		items := []Value{}
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			items = append(items, readValue(it))
			return it.Error == nil
		})
		return Value{Kind: Array, Items: items}
	case jsoniter.ObjectValue:
		var fields []Field
		pos := make(map[string]int)
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			val := readValue(it)
			if i, ok := pos[key]; ok {
				fields[i].Value = val
			} else {
				pos[key] = len(fields)
				fields = append(fields, Field{Key: key, Value: val})
			}
			return it.Error == nil
		})
		return Value{Kind: Object, Fields: orderKeys(fields)}
	default:
		iter.Skip()
		return Value{}
	}
}

// orderKeys moves array-index keys to the front in numeric order.
func orderKeys(fields []Field) []Field {
	var indexed, named []Field
	for _, f := range fields {
		if _, ok := arrayIndex(f.Key); ok {
			indexed = append(indexed, f)
		} else {
			named = append(named, f)
		}
	}
	if len(indexed) == 0 {
		return fields
	}
	for i := 1; i < len(indexed); i++ {
		for j := i; j > 0; j-- {
			a, _ := arrayIndex(indexed[j-1].Key)
			b, _ := arrayIndex(indexed[j].Key)
			if a <= b {
				break
			}
			indexed[j-1], indexed[j] = indexed[j], indexed[j-1]
		}
	}
	return append(indexed, named...)
}

func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// Canonical serializes v compactly so that two values compare equal exactly
// when their serializations match. Absent has no serialization and only
// equals another Absent.
func (v Value) Canonical() (string, bool) {
	if v.Kind == Absent {
		return "", false
	}
	var b strings.Builder
	v.writeCanonical(&b)
	return b.String(), true
}

func (v Value) writeCanonical(b *strings.Builder) {
	switch v.Kind {
	case Null, Absent:
		b.WriteString("null")
	case Bool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case Number:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(FormatNumber(v.Num))
	case String:
		s, _ := json.Marshal(v.Str)
		b.Write(s)
	case Array:
		b.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeCanonical(b)
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			k, _ := json.Marshal(f.Key)
			b.Write(k)
			b.WriteByte(':')
			f.Value.writeCanonical(b)
		}
		b.WriteByte('}')
	}
}

// FormatNumber prints a float the way JavaScript's String(n) does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
