// Package inidoc reads and writes the INI text form of confstore documents,
// and provides a disk-backed document source for external stores. It is the
// I/O collaborator the core deliberately leaves outside.
package inidoc

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"

	confstore "github.com/goliatone/go-confstore"
)

func init() {
	// Emit "key = value" without column alignment so dumped documents stay
	// byte-stable as sections grow.
	ini.PrettyFormat = false
	ini.PrettyEqual = true
}

var loadOptions = ini.LoadOptions{
	// Sentinel and marker tokens contain '#'; never treat them as comments.
	IgnoreInlineComment: true,
}

// Marshal renders doc as INI text, sections and keys in document order.
// Multi-line values are written in the triple-quoted form Unmarshal accepts.
func Marshal(doc *confstore.Document) ([]byte, error) {
	file := ini.Empty()
	for _, name := range doc.SectionNames() {
		section := doc.Section(name)
		iniSection, err := file.NewSection(name)
		if err != nil {
			return nil, fmt.Errorf("inidoc: section %q: %w", name, err)
		}
		for _, key := range section.Keys() {
			value, _ := section.Get(key)
			if _, err := iniSection.NewKey(key, value); err != nil {
				return nil, fmt.Errorf("inidoc: key %q in section %q: %w", key, name, err)
			}
		}
	}
	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("inidoc: write: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses INI text into a document, preserving section and key
// order. The unnamed default section is dropped when empty.
func Unmarshal(data []byte) (*confstore.Document, error) {
	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("inidoc: parse: %w", err)
	}
	doc := confstore.NewDocument()
	for _, iniSection := range file.Sections() {
		if iniSection.Name() == ini.DefaultSection && len(iniSection.Keys()) == 0 {
			continue
		}
		section := doc.EnsureSection(iniSection.Name())
		for _, key := range iniSection.Keys() {
			section.Set(key.Name(), key.Value())
		}
	}
	return doc, nil
}

// ReadFile parses the document at path.
func ReadFile(path string) (*confstore.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inidoc: read %q: %w", path, err)
	}
	return Unmarshal(data)
}

// WriteFile renders doc and writes it to path, creating parent directories.
func WriteFile(path string, doc *confstore.Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("inidoc: mkdir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("inidoc: write %q: %w", path, err)
	}
	return nil
}

// FileSource resolves site-relative document paths under Root. It satisfies
// confstore.DocumentSource for external stores backed by real files.
type FileSource struct {
	Root string
}

func (s FileSource) Load(path string) (*confstore.Document, bool, error) {
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	doc, err := ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return doc, true, nil
}

func (s FileSource) Save(path string, doc *confstore.Document) error {
	return WriteFile(filepath.Join(s.Root, filepath.FromSlash(path)), doc)
}
