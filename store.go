package confstore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// SubStore participates in a parent store's dump/load pass against the same
// document. Store, CollectionStore, and ExternalStore all implement it.
type SubStore interface {
	DumpInto(doc *Document) error
	LoadFrom(doc *Document, event *ChangeEvent) error
}

// SubStoreFactory builds a sub-store for the parent's target object. The
// caller supplies factories at construction; there is no ambient discovery.
type SubStoreFactory func(target any) (SubStore, error)

// Store binds one schema to one target object and moves field values between
// the object and a document. The target must be a non-nil pointer to a
// struct exposing an attribute for every schema field.
//
// A store is synchronous and not safe for concurrent use.
type Store struct {
	schema   Schema
	target   any
	section  string
	registry *Registry
	fields   []boundField
	subs     []SubStore
	hooks    Hooks
	logger   Logger
}

type boundField struct {
	spec  Field
	codec Codec
	index []int
	typ   reflect.Type
}

type storeConfig struct {
	section     string
	registry    *Registry
	fieldCodecs map[string]Codec
	typeCodecs  map[FieldType]Codec
	factories   []SubStoreFactory
	hooks       Hooks
	logger      Logger
}

// StoreOption configures a store at construction.
type StoreOption func(*storeConfig)

// WithSection overrides the section name, which defaults to the schema name.
func WithSection(name string) StoreOption {
	return func(cfg *storeConfig) {
		cfg.section = name
	}
}

// WithRegistry replaces the built-in codec registry. The registry is cloned,
// so later registrations on it do not affect the store.
func WithRegistry(registry *Registry) StoreOption {
	return func(cfg *storeConfig) {
		cfg.registry = registry
	}
}

// WithFieldCodec installs an override codec for one field name. Overrides
// win over type-tag codecs and receive raw values with no pre or post
// processing.
func WithFieldCodec(name string, codec Codec) StoreOption {
	return func(cfg *storeConfig) {
		if cfg.fieldCodecs == nil {
			cfg.fieldCodecs = map[string]Codec{}
		}
		cfg.fieldCodecs[name] = codec
	}
}

// WithTypeCodec replaces the codec for a type tag on this store only.
func WithTypeCodec(fieldType FieldType, codec Codec) StoreOption {
	return func(cfg *storeConfig) {
		if cfg.typeCodecs == nil {
			cfg.typeCodecs = map[FieldType]Codec{}
		}
		cfg.typeCodecs[fieldType] = codec
	}
}

// WithSubStores registers factories for sub-stores contributed to the same
// target. Sub-stores run after the store's own fields, in registration order.
func WithSubStores(factories ...SubStoreFactory) StoreOption {
	return func(cfg *storeConfig) {
		cfg.factories = append(cfg.factories, factories...)
	}
}

// WithHooks registers change hooks notified synchronously after a load that
// produced changes.
func WithHooks(hooks ...Hook) StoreOption {
	return func(cfg *storeConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

// WithLogger attaches a logger for dump/load events.
func WithLogger(logger Logger) StoreOption {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// NewStore binds schema to target and resolves every field's codec and
// struct attribute once.
func NewStore(schema Schema, target any, opts ...StoreOption) (*Store, error) {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rt, err := targetStructType(target)
	if err != nil {
		return nil, err
	}

	registry := cfg.registry
	if registry == nil {
		registry = NewRegistry()
	}
	registry = registry.Clone()
	for fieldType, codec := range cfg.typeCodecs {
		registry.RegisterType(fieldType, codec)
	}
	for name, codec := range cfg.fieldCodecs {
		registry.RegisterField(name, codec)
	}

	section := cfg.section
	if section == "" {
		section = schema.Name
	}
	if section == "" {
		return nil, fmt.Errorf("confstore: store needs a section name: schema has none and WithSection was not given")
	}

	store := &Store{
		schema:   schema,
		target:   target,
		section:  section,
		registry: registry,
		hooks:    cfg.hooks,
		logger:   cfg.logger,
	}
	if store.logger == nil {
		store.logger = noopLogger{}
	}

	for _, field := range schema.Fields {
		sf, ok := resolveAttr(rt, field)
		if !ok {
			return nil, fmt.Errorf("confstore: schema %q field %q: no matching attribute on %s", schema.Name, field.Name, rt)
		}
		store.fields = append(store.fields, boundField{
			spec:  field,
			codec: registry.Resolve(field),
			index: sf.Index,
			typ:   sf.Type,
		})
	}

	for _, factory := range cfg.factories {
		if factory == nil {
			continue
		}
		sub, err := factory(target)
		if err != nil {
			return nil, fmt.Errorf("confstore: sub-store factory: %w", err)
		}
		if sub != nil {
			store.subs = append(store.subs, sub)
		}
	}
	return store, nil
}

// Schema returns the bound schema.
func (s *Store) Schema() Schema { return s.schema }

// SectionName returns the resolved section name.
func (s *Store) SectionName() string { return s.section }

// Target returns the bound object.
func (s *Store) Target() any { return s.target }

// Dump produces a fresh document holding this store's section plus the
// sections of every registered sub-store.
func (s *Store) Dump() (*Document, error) {
	started := time.Now()
	doc := NewDocument()
	err := s.DumpInto(doc)
	s.logger.LogStore(LogEvent{Op: "dump", Section: s.section, Duration: time.Since(started), Err: err})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DumpInto merges this store's section and its sub-stores' sections into doc.
// Nil field values are not skipped; they pass through the bound codec.
func (s *Store) DumpInto(doc *Document) error {
	section := doc.EnsureSection(s.section)
	for _, field := range s.fields {
		value := s.getField(field)
		raw, err := field.codec.Dump(value, field.spec)
		if err != nil {
			return wrapConversionError(field.spec, "", err)
		}
		section.Set(field.spec.Name, raw)
	}
	for _, sub := range s.subs {
		if err := sub.DumpInto(doc); err != nil {
			return err
		}
	}
	return nil
}

// Load applies doc to the target object and returns the aggregated change
// event, or nil when nothing changed. Registered hooks are notified before
// Load returns. Conversion failures across fields are collected into one
// joined error; fields that converted cleanly are still applied, and no
// event is published on error.
func (s *Store) Load(doc *Document) (*ChangeEvent, error) {
	started := time.Now()
	event := newChangeEvent(s.target)
	err := s.LoadFrom(doc, event)
	changed := len(event.ChangedFields())
	s.logger.LogStore(LogEvent{Op: "load", Section: s.section, Changed: changed, Duration: time.Since(started), Err: err})
	if err != nil {
		return nil, err
	}
	if len(event.Changes) == 0 {
		return nil, nil
	}
	event.seal()
	if err := s.hooks.Notify(*event); err != nil {
		return event, err
	}
	return event, nil
}

// LoadFrom decodes this store's section from doc, mutating the target and
// recording changed fields into event. A missing section contributes
// nothing; a missing key skips that field. Sub-stores load from the same
// document afterwards.
func (s *Store) LoadFrom(doc *Document, event *ChangeEvent) error {
	var errs []error
	if section := doc.Section(s.section); section != nil {
		var changed []string
		for _, field := range s.fields {
			raw, ok := section.Get(field.spec.Name)
			if !ok {
				continue
			}
			decoded, err := field.codec.Load(raw, field.spec)
			if err != nil {
				errs = append(errs, wrapConversionError(field.spec, raw, err))
				continue
			}
			previous := s.getField(field)
			if err := s.setField(field, decoded); err != nil {
				errs = append(errs, wrapConversionError(field.spec, raw, err))
				continue
			}
			if equalValues(previous, s.getField(field)) {
				continue
			}
			changed = append(changed, field.spec.Name)
		}
		event.record(s.schema, changed)
	}
	for _, sub := range s.subs {
		if err := sub.LoadFrom(doc, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) getField(field boundField) any {
	rv := reflect.ValueOf(s.target).Elem().FieldByIndex(field.index)
	return rv.Interface()
}

// setField adapts decoded onto the attribute, bridging pointer and value
// representations in either direction. nil resets the attribute to its zero
// value.
func (s *Store) setField(field boundField, decoded any) error {
	rv := reflect.ValueOf(s.target).Elem().FieldByIndex(field.index)
	if decoded == nil {
		rv.Set(reflect.Zero(field.typ))
		return nil
	}
	dv := reflect.ValueOf(decoded)
	switch {
	case dv.Type().AssignableTo(field.typ):
		rv.Set(dv)
	case dv.Kind() == reflect.Pointer && dv.Elem().Type().AssignableTo(field.typ):
		rv.Set(dv.Elem())
	case field.typ.Kind() == reflect.Pointer && dv.Type().AssignableTo(field.typ.Elem()):
		pv := reflect.New(field.typ.Elem())
		pv.Elem().Set(dv)
		rv.Set(pv)
	default:
		return fmt.Errorf("cannot assign %T to attribute %s", decoded, field.typ)
	}
	return nil
}

func targetStructType(target any) (reflect.Type, error) {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("confstore: target must be a non-nil pointer to struct, got %T", target)
	}
	rt := rv.Type().Elem()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("confstore: target must point to a struct, got %T", target)
	}
	return rt, nil
}

// resolveAttr finds the struct field backing spec: explicit Attr name first,
// then a matching `conf` tag, then a case-insensitive match on the field
// name.
func resolveAttr(rt reflect.Type, spec Field) (reflect.StructField, bool) {
	if spec.Attr != "" {
		return rt.FieldByName(spec.Attr)
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tagName, _, skip := parseConfTag(sf)
		if !skip && sf.Tag.Get("conf") != "" && tagName == spec.Name {
			return sf, true
		}
	}
	return rt.FieldByNameFunc(func(name string) bool {
		return strings.EqualFold(name, spec.Name)
	})
}
