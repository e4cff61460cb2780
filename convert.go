package confstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// NoneToken marks "no value" in a document, distinct from the empty string.
// Codecs that cannot reserve the empty string for absence emit it.
const NoneToken = "<<<###NONE###>>>"

// BlankLineToken replaces blank lines inside multi-line text values so the
// flat key/value format survives them.
const BlankLineToken = "<BLANKLINE>"

const (
	timeLayout    = "15:04"
	itemSeparator = ", "
)

func dumpBool(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return NoneToken, nil
	}
	b, ok := inner.(bool)
	if !ok {
		return "", fmt.Errorf("expected bool, got %T", value)
	}
	if b {
		return "True", nil
	}
	return "False", nil
}

func loadBool(raw string, _ Field) (any, error) {
	switch raw {
	case NoneToken:
		return nil, nil
	case "True":
		return ptrTo(true), nil
	case "False":
		return ptrTo(false), nil
	default:
		return nil, fmt.Errorf("invalid bool %q", raw)
	}
}

func dumpTime(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return NoneToken, nil
	}
	t, ok := inner.(time.Time)
	if !ok {
		return "", fmt.Errorf("expected time.Time, got %T", value)
	}
	return t.Format(timeLayout), nil
}

func loadTime(raw string, _ Field) (any, error) {
	if raw == NoneToken {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return nil, err
	}
	return ptrTo(t), nil
}

// dumpDuration renders h:mm:ss. Absence is the empty string rather than the
// none sentinel; loadDuration mirrors that, so an empty duration value is not
// representable. Callers relying on round trips must treat nil and empty as
// equivalent for duration fields.
func dumpDuration(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return "", nil
	}
	d, ok := inner.(time.Duration)
	if !ok {
		return "", fmt.Errorf("expected time.Duration, got %T", value)
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	hours := d / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second
	return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, seconds), nil
}

func loadDuration(raw string, _ Field) (any, error) {
	if raw == "" {
		return nil, nil
	}
	sign := time.Duration(1)
	if strings.HasPrefix(raw, "-") {
		sign = -1
		raw = raw[1:]
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid duration %q: want h:mm:ss", raw)
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid duration %q", raw)
		}
		total += time.Duration(n) * units[i]
	}
	return ptrTo(sign * total), nil
}

func dumpText(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return "", nil
	}
	s, ok := inner.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", value)
	}
	return maskBlankLines(s), nil
}

func loadText(raw string, _ Field) (any, error) {
	if raw == "" {
		return nil, nil
	}
	return ptrTo(unmaskBlankLines(raw)), nil
}

func dumpChoice(value any, field Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return "", nil
	}
	for _, term := range field.Vocabulary {
		if equalValues(term.Value, inner) {
			return term.Token, nil
		}
	}
	// Values outside the vocabulary dump silently as empty.
	return "", nil
}

func loadChoice(raw string, field Field) (any, error) {
	if raw == "" {
		return nil, nil
	}
	for _, term := range field.Vocabulary {
		if term.Token == raw {
			return term.Value, nil
		}
	}
	return nil, fmt.Errorf("token %q not in vocabulary", raw)
}

func dumpSequence(value any, _ Field) (string, error) {
	items, err := sequenceItems(value)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = dumpItem(item)
	}
	return strings.Join(parts, itemSeparator), nil
}

func loadList(raw string, _ Field) (any, error) {
	return splitSequence(raw), nil
}

func loadTuple(raw string, _ Field) (any, error) {
	return splitSequence(raw), nil
}

func dumpSet(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return "", nil
	}
	set, ok := inner.(Set)
	if !ok {
		return "", fmt.Errorf("expected Set, got %T", value)
	}
	parts := make([]string, 0, set.Len())
	for _, member := range set.Members() {
		parts = append(parts, dumpItem(member))
	}
	return strings.Join(parts, itemSeparator), nil
}

func loadSet(raw string, _ Field) (any, error) {
	return NewSet(splitSequence(raw)...), nil
}

func dumpVerbatim(value any, _ Field) (string, error) {
	inner, isNil := deref(value)
	if isNil {
		return NoneToken, nil
	}
	if s, ok := inner.(string); ok {
		return s, nil
	}
	return fmt.Sprint(inner), nil
}

func loadVerbatim(raw string, _ Field) (any, error) {
	if raw == NoneToken {
		return nil, nil
	}
	return ptrTo(raw), nil
}

// dumpItem renders one sequence or set member: nil becomes the none sentinel,
// everything else goes through blank-line masking.
func dumpItem(item *string) string {
	if item == nil {
		return NoneToken
	}
	return maskBlankLines(*item)
}

func loadItem(raw string) *string {
	if raw == NoneToken {
		return nil
	}
	return ptrTo(unmaskBlankLines(raw))
}

func splitSequence(raw string) []*string {
	if raw == "" {
		return []*string{}
	}
	parts := strings.Split(raw, itemSeparator)
	out := make([]*string, len(parts))
	for i, part := range parts {
		out[i] = loadItem(part)
	}
	return out
}

func sequenceItems(value any) ([]*string, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case []*string:
		return typed, nil
	case []string:
		out := make([]*string, len(typed))
		for i := range typed {
			out[i] = &typed[i]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected []string or []*string, got %T", value)
	}
}

func maskBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = BlankLineToken
		}
	}
	return strings.Join(lines, "\n")
}

func unmaskBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == BlankLineToken {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// deref unwraps one level of pointer and reports whether the underlying
// value is absent.
func deref(value any) (any, bool) {
	if value == nil {
		return nil, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, true
		}
		return rv.Elem().Interface(), false
	}
	return value, false
}

// equalValues compares decoded and current field values. Pointers compare by
// pointee, times by time.Time.Equal, sets by membership.
func equalValues(a, b any) bool {
	av, aNil := deref(a)
	bv, bNil := deref(b)
	if aNil || bNil {
		return aNil == bNil
	}
	if at, ok := av.(time.Time); ok {
		bt, ok := bv.(time.Time)
		return ok && at.Equal(bt)
	}
	if as, ok := av.(Set); ok {
		bs, ok := bv.(Set)
		return ok && as.Equal(bs)
	}
	// A nil slice and an empty one carry the same document value.
	ar, br := reflect.ValueOf(av), reflect.ValueOf(bv)
	if ar.Kind() == reflect.Slice && br.Kind() == reflect.Slice && ar.Len() == 0 && br.Len() == 0 {
		return ar.Type() == br.Type()
	}
	return reflect.DeepEqual(av, bv)
}

func ptrTo[T any](value T) *T {
	return &value
}
