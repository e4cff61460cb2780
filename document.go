package confstore

import (
	"github.com/goliatone/go-confstore/internal/ordered"
)

// Document is a parsed configuration file: section names mapped to sections,
// iterated in insertion order. Parsing and writing the on-disk text live
// outside the core; pkg/inidoc provides an INI adapter.
type Document struct {
	sections *ordered.Map[string, *Section]
}

// Section holds the key/value pairs of one document section in insertion
// order. Values are the raw strings the codecs produce and consume.
type Section struct {
	name   string
	values *ordered.Map[string, string]
}

func NewDocument() *Document {
	return &Document{sections: ordered.New[string, *Section]()}
}

// Section returns the named section, or nil when absent.
func (d *Document) Section(name string) *Section {
	if d == nil {
		return nil
	}
	section, _ := d.sections.Get(name)
	return section
}

// EnsureSection returns the named section, creating it at the end of the
// document when absent.
func (d *Document) EnsureSection(name string) *Section {
	if section, ok := d.sections.Get(name); ok {
		return section
	}
	section := &Section{name: name, values: ordered.New[string, string]()}
	d.sections.Set(name, section)
	return section
}

// SetSection inserts or replaces a section under name. A replaced section
// keeps its original position.
func (d *Document) SetSection(name string, section *Section) {
	if section == nil {
		return
	}
	section.name = name
	d.sections.Set(name, section)
}

func (d *Document) DeleteSection(name string) bool {
	if d == nil {
		return false
	}
	return d.sections.Delete(name)
}

// SectionNames returns section names in document order.
func (d *Document) SectionNames() []string {
	if d == nil {
		return nil
	}
	return d.sections.Keys()
}

func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return d.sections.Len()
}

func NewSection(name string) *Section {
	return &Section{name: name, values: ordered.New[string, string]()}
}

// Name reports the section's header name.
func (s *Section) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

func (s *Section) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.values.Get(key)
}

func (s *Section) Set(key, value string) {
	if s.values == nil {
		s.values = ordered.New[string, string]()
	}
	s.values.Set(key, value)
}

func (s *Section) Has(key string) bool {
	if s == nil {
		return false
	}
	return s.values.Has(key)
}

// Keys returns the section's keys in insertion order.
func (s *Section) Keys() []string {
	if s == nil {
		return nil
	}
	return s.values.Keys()
}

func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return s.values.Len()
}
