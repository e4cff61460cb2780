package confstore

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// FieldType tags a field with the codec family used to convert it. The zero
// value means "no declared type": the value string passes through verbatim,
// with nil rendered as the none sentinel.
type FieldType string

const (
	TypeBool     FieldType = "bool"
	TypeTime     FieldType = "time"
	TypeDuration FieldType = "duration"
	TypeText     FieldType = "text"
	TypeChoice   FieldType = "choice"
	TypeList     FieldType = "list"
	TypeTuple    FieldType = "tuple"
	TypeSet      FieldType = "set"
)

// Term pairs one vocabulary value with the token that represents it in a
// document. Choice fields dump values to tokens and load tokens back.
type Term struct {
	Value any
	Token string
}

// Field describes one persisted attribute of a target struct.
type Field struct {
	// Name is the document key for this field.
	Name string
	// Attr is the struct field holding the value. When empty the struct is
	// searched by `conf` tag, then by case-insensitive match on Name.
	Attr string
	Type FieldType
	// Vocabulary is consulted by choice fields only, in declaration order.
	Vocabulary []Term
}

// Schema is an ordered list of field declarations. Name doubles as the
// default section name for stores bound to it.
type Schema struct {
	Name   string
	Fields []Field
}

// Field returns the declaration for name and whether it exists.
func (s Schema) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// FieldNames returns the declared names in schema order.
func (s Schema) FieldNames() []string {
	if len(s.Fields) == 0 {
		return nil
	}
	out := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		out[i] = field.Name
	}
	return out
}

// DeriveSchema builds a schema from target's struct fields. target must be a
// struct or pointer to struct. Exported fields are included in declaration
// order; a `conf:"name"` tag overrides the document key and an optional
// second tag element forces the field type (`conf:"bio,text"`). Fields tagged
// `conf:"-"` are skipped. Types are otherwise inferred:
//
//	bool, *bool              -> TypeBool
//	time.Time, *time.Time    -> TypeTime
//	*time.Duration           -> TypeDuration
//	Set                      -> TypeSet
//	slices                   -> TypeList
//	everything else          -> untyped (verbatim)
func DeriveSchema(name string, target any) (Schema, error) {
	rt := reflect.TypeOf(target)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("confstore: derive schema: target must be a struct, got %T", target)
	}

	schema := Schema{Name: name}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fieldName, fieldType, skip := parseConfTag(sf)
		if skip {
			continue
		}
		if fieldType == "" {
			fieldType = inferFieldType(sf.Type)
		}
		schema.Fields = append(schema.Fields, Field{
			Name: fieldName,
			Attr: sf.Name,
			Type: fieldType,
		})
	}
	return schema, nil
}

func parseConfTag(sf reflect.StructField) (name string, fieldType FieldType, skip bool) {
	tag := sf.Tag.Get("conf")
	if tag == "-" {
		return "", "", true
	}
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	if name == "" {
		name = lowerFirst(sf.Name)
	}
	if len(parts) > 1 {
		fieldType = FieldType(strings.TrimSpace(parts[1]))
	}
	return name, fieldType, false
}

func inferFieldType(rt reflect.Type) FieldType {
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	switch {
	case rt.Kind() == reflect.Bool:
		return TypeBool
	case rt == reflect.TypeOf(time.Time{}):
		return TypeTime
	case rt == reflect.TypeOf(time.Duration(0)):
		return TypeDuration
	case rt == reflect.TypeOf(Set{}):
		return TypeSet
	case rt.Kind() == reflect.Slice:
		return TypeList
	default:
		return ""
	}
}

func lowerFirst(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
