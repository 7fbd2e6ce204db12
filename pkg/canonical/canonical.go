// Package canonical produces byte-stable JSON encodings of nested objects and
// the content IDs derived from them.
//
// Object keys are emitted in the sorted order of every key that appears
// anywhere in the value, so two encoders that agree on the logical content
// agree on the bytes regardless of field insertion order.
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Klingon-tech/ldpos-client/pkg/crypto"
)

// IDLength is the number of hash bytes kept in a content ID.
const IDLength = 20

var (
	// ErrInvalidUTF8 is returned for a string or object key that is not
	// valid UTF-8. Such bytes would otherwise collapse to U+FFFD and two
	// different inputs would share an encoding.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	// ErrCyclicValue is returned when a typed value refers back to itself
	// through a pointer, map or slice.
	ErrCyclicValue = errors.New("cyclic typed value")
)

// AllKeys returns the sorted, de-duplicated set of object keys found anywhere
// in v. A map or slice reached a second time contributes nothing, so cyclic
// values terminate. AllKeys returns nil when v cannot be encoded; use
// Canonicalize to get the error.
func AllKeys(v any) []string {
	generic, err := normalize(v)
	if err != nil {
		return nil
	}
	set := make(map[string]struct{})
	visited := make(map[identity]struct{})
	collectKeys(generic, set, visited)

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Canonicalize returns the canonical encoding of v. Typed values are encoded
// through encoding/json first, so struct tags decide field names.
//
// Cycles made of generic map[string]any and []any containers are cut: the
// repeated container is written as {} or []. A typed value that cycles through
// a pointer fails with ErrCyclicValue. Invalid UTF-8 anywhere in v fails with
// ErrInvalidUTF8.
func Canonicalize(v any) (string, error) {
	generic, err := normalize(v)
	if err != nil {
		return "", err
	}
	buf := &bytes.Buffer{}
	w := newWriter(AllKeys(generic))
	if err := w.write(buf, generic); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CanonicalizeWithMeta returns "[<canonical v>,<canonical meta>]", the payload
// a co-signer signs to bind its meta packet to v.
func CanonicalizeWithMeta(v, meta any) (string, error) {
	core, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize object: %w", err)
	}
	m, err := Canonicalize(meta)
	if err != nil {
		return "", fmt.Errorf("canonicalize meta: %w", err)
	}
	return "[" + core + "," + m + "]", nil
}

// ContentID returns the hex-encoded first IDLength bytes of the hash of the
// canonical encoding of v.
func ContentID(v any) (string, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return crypto.TruncatedHex([]byte(c), IDLength), nil
}

// identity keys a map or slice by the address of its backing storage.
type identity struct {
	ptr uintptr
	n   int
}

func identityOf(v any) (identity, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), n: -1}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), n: rv.Len()}, true
	}
	return identity{}, false
}

func collectKeys(v any, set map[string]struct{}, visited map[identity]struct{}) {
	switch value := v.(type) {
	case map[string]any:
		id, _ := identityOf(value)
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		for k, child := range value {
			set[k] = struct{}{}
			collectKeys(child, set, visited)
		}
	case []any:
		id, ok := identityOf(value)
		if ok {
			if _, seen := visited[id]; seen {
				return
			}
			visited[id] = struct{}{}
		}
		for _, child := range value {
			collectKeys(child, set, visited)
		}
	case nil, bool, string, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
	default:
		// A typed value nested in a generic container.
		generic, err := normalize(value)
		if err == nil {
			collectKeys(generic, set, visited)
		}
	}
}

// normalize converts v into the generic JSON tree (map[string]any, []any,
// string, bool, nil and numbers). Generic containers are returned as is so
// identity-based cycle tracking still sees the caller's values.
func normalize(v any) (any, error) {
	switch value := v.(type) {
	case nil, bool, string, json.Number, float64, float32,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		map[string]any, []any:
		return value, nil
	case json.RawMessage:
		if !utf8.Valid(value) {
			return nil, ErrInvalidUTF8
		}
		return decodeGeneric(value)
	default:
		if err := checkTyped(reflect.ValueOf(value), make(map[ref]struct{})); err != nil {
			return nil, err
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %T: %w", v, err)
		}
		return decodeGeneric(b)
	}
}

// checkTyped walks the parts of a typed value encoding/json would emit and
// rejects invalid UTF-8 and self-references before marshalling, since
// json.Marshal substitutes U+FFFD for the former and only reports the latter
// after a deep recursion. path holds the references on the current branch.
func checkTyped(rv reflect.Value, path map[ref]struct{}) error {
	switch rv.Kind() {
	case reflect.String:
		if !utf8.ValidString(rv.String()) {
			return ErrInvalidUTF8
		}
	case reflect.Interface:
		if !rv.IsNil() {
			return checkTyped(rv.Elem(), path)
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return checkRef(rv, path, func() error { return checkTyped(rv.Elem(), path) })
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() && !f.Anonymous {
				continue
			}
			if f.Tag.Get("json") == "-" {
				continue
			}
			if err := checkTyped(rv.Field(i), path); err != nil {
				return err
			}
		}
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		return checkRef(rv, path, func() error {
			iter := rv.MapRange()
			for iter.Next() {
				if err := checkTyped(iter.Key(), path); err != nil {
					return err
				}
				if err := checkTyped(iter.Value(), path); err != nil {
					return err
				}
			}
			return nil
		})
	case reflect.Slice:
		if rv.Len() == 0 || rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		return checkRef(rv, path, func() error { return checkElems(rv, path) })
	case reflect.Array:
		return checkElems(rv, path)
	}
	return nil
}

func checkElems(rv reflect.Value, path map[ref]struct{}) error {
	for i := 0; i < rv.Len(); i++ {
		if err := checkTyped(rv.Index(i), path); err != nil {
			return err
		}
	}
	return nil
}

// ref identifies a pointer, map or slice. A struct and its first field share
// an address, so the type is part of the key.
type ref struct {
	ptr uintptr
	typ reflect.Type
}

func checkRef(rv reflect.Value, path map[ref]struct{}, fn func() error) error {
	r := ref{ptr: rv.Pointer(), typ: rv.Type()}
	if _, cyclic := path[r]; cyclic {
		return ErrCyclicValue
	}
	path[r] = struct{}{}
	defer delete(path, r)
	return fn()
}

func decodeGeneric(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid JSON: trailing data")
	}
	return out, nil
}

type writer struct {
	keys []string
	// path holds the containers currently being written; re-entering one
	// means the value is cyclic.
	path map[identity]struct{}
}

func newWriter(keys []string) *writer {
	return &writer{keys: keys, path: make(map[identity]struct{})}
}

func (w *writer) write(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		if !utf8.ValidString(v) {
			return ErrInvalidUTF8
		}
		writeString(buf, v)
	case json.Number:
		num, err := canonicalizeNumberString(v.String())
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float64:
		num, err := canonicalizeFloat(v)
		if err != nil {
			return err
		}
		buf.WriteString(num)
	case float32:
		return w.write(buf, float64(v))
	case int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(v, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(v, 10))
	case map[string]any:
		return w.writeObject(buf, v)
	case []any:
		return w.writeArray(buf, v)
	default:
		generic, err := normalize(v)
		if err != nil {
			return err
		}
		return w.write(buf, generic)
	}
	return nil
}

func (w *writer) writeObject(buf *bytes.Buffer, obj map[string]any) error {
	id, _ := identityOf(obj)
	if _, cyclic := w.path[id]; cyclic {
		buf.WriteString("{}")
		return nil
	}
	w.path[id] = struct{}{}
	defer delete(w.path, id)

	buf.WriteByte('{')
	first := true
	for _, k := range w.keys {
		child, ok := obj[k]
		if !ok {
			continue
		}
		if !utf8.ValidString(k) {
			return ErrInvalidUTF8
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, k)
		buf.WriteByte(':')
		if err := w.write(buf, child); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (w *writer) writeArray(buf *bytes.Buffer, arr []any) error {
	id, tracked := identityOf(arr)
	if tracked {
		if _, cyclic := w.path[id]; cyclic {
			buf.WriteString("[]")
			return nil
		}
		w.path[id] = struct{}{}
		defer delete(w.path, id)
	}

	buf.WriteByte('[')
	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := w.write(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

var hexLower = []byte("0123456789abcdef")

// canonicalizeNumberString keeps integers exact and falls back to the
// shortest float form otherwise.
func canonicalizeNumberString(number string) (string, error) {
	if i, err := strconv.ParseInt(number, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	if u, err := strconv.ParseUint(number, 10, 64); err == nil {
		return strconv.FormatUint(u, 10), nil
	}
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "", fmt.Errorf("invalid JSON number: %w", err)
	}
	return canonicalizeFloat(f)
}

func canonicalizeFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New("invalid JSON number")
	}
	if f == 0 {
		return "0", nil
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = math.Abs(f)
	}

	mantissa, exp, err := splitScientific(f)
	if err != nil {
		return "", err
	}

	digits := strings.ReplaceAll(mantissa, ".", "")

	if exp <= -7 || exp >= 21 {
		if len(digits) == 1 {
			return sign + digits + "e" + expString(exp), nil
		}
		return sign + digits[:1] + "." + digits[1:] + "e" + expString(exp), nil
	}

	point := exp + 1
	if point >= len(digits) {
		return sign + digits + strings.Repeat("0", point-len(digits)), nil
	}
	if point <= 0 {
		return sign + "0." + strings.Repeat("0", -point) + digits, nil
	}
	return sign + digits[:point] + "." + digits[point:], nil
}

func expString(exp int) string {
	if exp > 0 {
		return "+" + strconv.Itoa(exp)
	}
	return strconv.Itoa(exp)
}

func splitScientific(f float64) (string, int, error) {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	parts := strings.SplitN(s, "e", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid float format: %q", s)
	}
	exp, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid float exponent: %w", err)
	}
	return parts[0], exp, nil
}
