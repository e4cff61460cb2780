package confstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-confstore/internal/ordered"
)

// Items is the insertion-ordered backing map of a collection store, keying
// item names to item objects (pointers to structs).
type Items struct {
	entries *ordered.Map[string, any]
}

func NewItems() *Items {
	return &Items{entries: ordered.New[string, any]()}
}

func (i *Items) Get(key string) (any, bool) {
	if i == nil {
		return nil, false
	}
	return i.entries.Get(key)
}

func (i *Items) Set(key string, item any) {
	if i.entries == nil {
		i.entries = ordered.New[string, any]()
	}
	i.entries.Set(key, item)
}

func (i *Items) Delete(key string) bool {
	if i == nil {
		return false
	}
	return i.entries.Delete(key)
}

func (i *Items) Has(key string) bool {
	if i == nil {
		return false
	}
	return i.entries.Has(key)
}

// Keys returns item keys in insertion order.
func (i *Items) Keys() []string {
	if i == nil {
		return nil
	}
	return i.entries.Keys()
}

func (i *Items) Len() int {
	if i == nil {
		return 0
	}
	return i.entries.Len()
}

// CollectionStore multiplexes one item schema across an ordered mapping of
// items, one document section per item under the composed name prefix+key.
type CollectionStore struct {
	schema   Schema
	items    *Items
	prefix   string
	factory  func() any
	itemOpts []StoreOption
	prune    bool
}

// CollectionOption configures a collection store at construction.
type CollectionOption func(*CollectionStore)

// WithItemOptions passes store options through to every transient per-item
// store (codec overrides, registries, loggers).
func WithItemOptions(opts ...StoreOption) CollectionOption {
	return func(c *CollectionStore) {
		c.itemOpts = append(c.itemOpts, opts...)
	}
}

// WithPrune removes items whose section disappeared from the document on
// load. The default keeps them untouched.
func WithPrune(prune bool) CollectionOption {
	return func(c *CollectionStore) {
		c.prune = prune
	}
}

// NewCollectionStore builds a collection store over items. factory constructs
// a blank item when a section with an unknown key appears during load.
func NewCollectionStore(schema Schema, items *Items, prefix string, factory func() any, opts ...CollectionOption) (*CollectionStore, error) {
	if items == nil {
		return nil, fmt.Errorf("confstore: collection store needs a backing Items map")
	}
	if prefix == "" {
		return nil, fmt.Errorf("confstore: collection store needs a section prefix")
	}
	if factory == nil {
		return nil, fmt.Errorf("confstore: collection store needs an item factory")
	}
	store := &CollectionStore{
		schema:  schema,
		items:   items,
		prefix:  prefix,
		factory: factory,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// DumpInto writes one section per item, in backing-map order.
func (c *CollectionStore) DumpInto(doc *Document) error {
	var errs []error
	for _, key := range c.items.Keys() {
		item, _ := c.items.Get(key)
		st, err := c.itemStore(key, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := st.DumpInto(doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFrom scans doc for sections under the prefix. Known keys mutate the
// existing item in place; unknown keys construct a new item and insert it.
// Items whose section disappeared are left alone unless WithPrune is set.
func (c *CollectionStore) LoadFrom(doc *Document, event *ChangeEvent) error {
	var errs []error
	seen := map[string]struct{}{}
	for _, name := range doc.SectionNames() {
		if !strings.HasPrefix(name, c.prefix) {
			continue
		}
		key := strings.TrimPrefix(name, c.prefix)
		seen[key] = struct{}{}

		item, ok := c.items.Get(key)
		if !ok {
			item = c.factory()
		}
		st, err := c.itemStore(key, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := st.LoadFrom(doc, event); err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			c.items.Set(key, item)
		}
	}
	if c.prune {
		for _, key := range c.items.Keys() {
			if _, ok := seen[key]; !ok {
				c.items.Delete(key)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *CollectionStore) itemStore(key string, item any) (*Store, error) {
	opts := append([]StoreOption{WithSection(c.prefix + key)}, c.itemOpts...)
	st, err := NewStore(c.schema, item, opts...)
	if err != nil {
		return nil, fmt.Errorf("confstore: collection item %q: %w", key, err)
	}
	return st, nil
}
