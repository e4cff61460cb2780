package confstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// ExternalPathKey is the primary-section key holding the site-relative path
// of the external document.
const ExternalPathKey = "config-path"

// ExternalSection is the default section name the external document stores
// its fields under.
const ExternalSection = "general"

// PathResolver supplies the directories and filename an external store needs
// to compute the reference path it writes into the primary document.
type PathResolver interface {
	// ConfigDir is the directory holding the external file.
	ConfigDir() string
	// SiteDir anchors the relative path written under the config-path key.
	SiteDir() string
	// Filename names the external file.
	Filename() string
}

// StaticPaths is a PathResolver over fixed values.
type StaticPaths struct {
	Config string
	Site   string
	File   string
}

func (p StaticPaths) ConfigDir() string { return p.Config }
func (p StaticPaths) SiteDir() string   { return p.Site }
func (p StaticPaths) Filename() string  { return p.File }

// DocumentSource obtains and persists documents by site-relative path. The
// core never touches the filesystem; pkg/inidoc ships a disk-backed source.
type DocumentSource interface {
	Load(path string) (*Document, bool, error)
	Save(path string, doc *Document) error
}

// MemorySource is an in-memory DocumentSource for tests and examples.
type MemorySource struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewMemorySource() *MemorySource {
	return &MemorySource{docs: map[string]*Document{}}
}

func (s *MemorySource) Load(path string) (*Document, bool, error) {
	s.mu.RLock()
	doc, ok := s.docs[path]
	s.mu.RUnlock()
	return doc, ok, nil
}

func (s *MemorySource) Save(path string, doc *Document) error {
	s.mu.Lock()
	s.docs[path] = doc
	s.mu.Unlock()
	return nil
}

// ExternalStore keeps a store's data in a separate document, leaving only a
// config-path reference in the primary one.
type ExternalStore struct {
	inner   *Store
	section string
	paths   PathResolver
	source  DocumentSource
}

// ExternalOption configures an external store at construction.
type ExternalOption func(*externalConfig)

type externalConfig struct {
	primarySection  string
	externalSection string
	storeOpts       []StoreOption
}

// WithPrimarySection overrides the primary section carrying the config-path
// reference, which defaults to the schema name.
func WithPrimarySection(name string) ExternalOption {
	return func(cfg *externalConfig) {
		cfg.primarySection = name
	}
}

// WithExternalSection overrides the section name inside the external
// document, which defaults to ExternalSection.
func WithExternalSection(name string) ExternalOption {
	return func(cfg *externalConfig) {
		cfg.externalSection = name
	}
}

// WithExternalStoreOptions passes store options through to the wrapped field
// store.
func WithExternalStoreOptions(opts ...StoreOption) ExternalOption {
	return func(cfg *externalConfig) {
		cfg.storeOpts = append(cfg.storeOpts, opts...)
	}
}

// NewExternalStore wraps a field store for target so its data lives in the
// document paths points at, obtained through source.
func NewExternalStore(schema Schema, target any, paths PathResolver, source DocumentSource, opts ...ExternalOption) (*ExternalStore, error) {
	if paths == nil {
		return nil, fmt.Errorf("confstore: external store needs a path resolver")
	}
	if source == nil {
		return nil, fmt.Errorf("confstore: external store needs a document source")
	}
	cfg := externalConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.primarySection == "" {
		cfg.primarySection = schema.Name
	}
	if cfg.primarySection == "" {
		return nil, fmt.Errorf("confstore: external store needs a primary section name")
	}
	if cfg.externalSection == "" {
		cfg.externalSection = ExternalSection
	}

	storeOpts := append([]StoreOption{WithSection(cfg.externalSection)}, cfg.storeOpts...)
	inner, err := NewStore(schema, target, storeOpts...)
	if err != nil {
		return nil, err
	}
	return &ExternalStore{
		inner:   inner,
		section: cfg.primarySection,
		paths:   paths,
		source:  source,
	}, nil
}

// ReferencePath computes the site-relative slash path written under the
// config-path key.
func (s *ExternalStore) ReferencePath() (string, error) {
	full := filepath.Join(s.paths.ConfigDir(), s.paths.Filename())
	rel, err := filepath.Rel(s.paths.SiteDir(), full)
	if err != nil {
		return "", fmt.Errorf("confstore: external store: relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Dump produces the primary document fragment and saves the external
// document through the source.
func (s *ExternalStore) Dump() (*Document, error) {
	doc := NewDocument()
	if err := s.DumpInto(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DumpInto writes the config-path reference into doc's primary section and
// hands the full field dump to the document source under that path.
func (s *ExternalStore) DumpInto(doc *Document) error {
	rel, err := s.ReferencePath()
	if err != nil {
		return err
	}
	doc.EnsureSection(s.section).Set(ExternalPathKey, rel)

	external := NewDocument()
	if err := s.inner.DumpInto(external); err != nil {
		return err
	}
	if err := s.source.Save(rel, external); err != nil {
		return fmt.Errorf("confstore: external store: save %q: %w", rel, err)
	}
	return nil
}

// Load resolves the external document referenced by doc and applies it,
// returning the change event the way Store.Load does.
func (s *ExternalStore) Load(doc *Document) (*ChangeEvent, error) {
	started := time.Now()
	event := newChangeEvent(s.inner.target)
	err := s.LoadFrom(doc, event)
	s.inner.logger.LogStore(LogEvent{Op: "load", Section: s.section, Changed: len(event.ChangedFields()), Duration: time.Since(started), Err: err})
	if err != nil {
		return nil, err
	}
	if len(event.Changes) == 0 {
		return nil, nil
	}
	event.seal()
	if err := s.inner.hooks.Notify(*event); err != nil {
		return event, err
	}
	return event, nil
}

// LoadFrom reads the config-path reference from doc, obtains the external
// document, and performs the ordinary field load against it. A missing
// primary section, missing reference key, or unresolvable document
// contributes nothing.
func (s *ExternalStore) LoadFrom(doc *Document, event *ChangeEvent) error {
	section := doc.Section(s.section)
	if section == nil {
		return nil
	}
	rel, ok := section.Get(ExternalPathKey)
	if !ok {
		return nil
	}
	external, ok, err := s.source.Load(rel)
	if err != nil {
		return fmt.Errorf("confstore: external store: load %q: %w", rel, err)
	}
	if !ok {
		return nil
	}
	return s.inner.LoadFrom(external, event)
}
