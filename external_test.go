package confstore

import (
	"testing"
)

func newPersonExternal(t *testing.T, target *person, source DocumentSource) *ExternalStore {
	t.Helper()
	store, err := NewExternalStore(personSchema(), target, StaticPaths{
		Config: "/site/test",
		Site:   "/site",
		File:   "person.ini",
	}, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func TestExternalDumpWritesReferenceAndExternalDocument(t *testing.T) {
	source := NewMemorySource()
	target := &person{FirstName: ptrTo("Stephan"), LastName: ptrTo("Richter")}
	store := newPersonExternal(t, target, source)

	doc, err := store.Dump()
	if err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}

	section := doc.Section("generic")
	if section == nil {
		t.Fatalf("expected primary section")
	}
	if got, _ := section.Get(ExternalPathKey); got != "test/person.ini" {
		t.Fatalf("expected reference path %q, got %q", "test/person.ini", got)
	}
	if section.Len() != 1 {
		t.Fatalf("expected primary section to hold only the reference, got %v", section.Keys())
	}

	external, ok, err := source.Load("test/person.ini")
	if err != nil || !ok {
		t.Fatalf("expected external document saved, ok=%v err=%v", ok, err)
	}
	fields := external.Section(ExternalSection)
	if fields == nil {
		t.Fatalf("expected external fields under %q, got %v", ExternalSection, external.SectionNames())
	}
	if got, _ := fields.Get("firstName"); got != "Stephan" {
		t.Fatalf("expected field content in external document, got %q", got)
	}
}

func TestExternalLoadResolvesExternalDocument(t *testing.T) {
	source := NewMemorySource()
	original := &person{FirstName: ptrTo("Stephan"), LastName: ptrTo("Richter")}
	primary, err := newPersonExternal(t, original, source).Dump()
	if err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}

	blank := &person{}
	event, err := newPersonExternal(t, blank, source).Load(primary)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if event == nil {
		t.Fatalf("expected a change event for the blank object")
	}
	if blank.FirstName == nil || *blank.FirstName != "Stephan" {
		t.Fatalf("expected firstName restored, got %v", blank.FirstName)
	}
	if blank.LastName == nil || *blank.LastName != "Richter" {
		t.Fatalf("expected lastName restored, got %v", blank.LastName)
	}
	if blank.Nickname != nil {
		t.Fatalf("expected nickname nil, got %v", *blank.Nickname)
	}
}

func TestExternalLoadSkipsMissingReference(t *testing.T) {
	source := NewMemorySource()
	target := &person{FirstName: ptrTo("Stephan")}
	store := newPersonExternal(t, target, source)

	// No primary section at all.
	if event, err := store.Load(NewDocument()); err != nil || event != nil {
		t.Fatalf("expected missing section to contribute nothing, event=%v err=%v", event, err)
	}

	// Section present but no reference key.
	doc := NewDocument()
	doc.EnsureSection("generic").Set("unrelated", "x")
	if event, err := store.Load(doc); err != nil || event != nil {
		t.Fatalf("expected missing key to contribute nothing, event=%v err=%v", event, err)
	}

	// Reference points at a document the source cannot resolve.
	doc = NewDocument()
	doc.EnsureSection("generic").Set(ExternalPathKey, "test/gone.ini")
	if event, err := store.Load(doc); err != nil || event != nil {
		t.Fatalf("expected unresolvable reference to contribute nothing, event=%v err=%v", event, err)
	}
	if *target.FirstName != "Stephan" {
		t.Fatalf("expected target untouched, got %q", *target.FirstName)
	}
}

func TestExternalStoreAsSubStore(t *testing.T) {
	source := NewMemorySource()
	target := &person{FirstName: ptrTo("Stephan"), LastName: ptrTo("Richter"), Nickname: ptrTo("sr")}

	mainSchema := Schema{Name: "main", Fields: []Field{{Name: "nickname"}}}
	store, err := NewStore(mainSchema, target, WithSubStores(func(target any) (SubStore, error) {
		return NewExternalStore(personSchema(), target.(*person), StaticPaths{
			Config: "/site/test",
			Site:   "/site",
			File:   "person.ini",
		}, source)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := store.Dump()
	if err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}
	if doc.Section("generic") == nil {
		t.Fatalf("expected the sub-store's primary section, got %v", doc.SectionNames())
	}

	blank := &person{}
	loaded, err := NewStore(mainSchema, blank, WithSubStores(func(any) (SubStore, error) {
		return NewExternalStore(personSchema(), blank, StaticPaths{
			Config: "/site/test",
			Site:   "/site",
			File:   "person.ini",
		}, source)
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	event, err := loaded.Load(doc)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if event == nil || len(event.Changes) != 2 {
		t.Fatalf("expected main and external descriptions, got %+v", event)
	}
	if blank.FirstName == nil || *blank.FirstName != "Stephan" {
		t.Fatalf("expected external fields restored, got %+v", blank)
	}
	if blank.Nickname == nil || *blank.Nickname != "sr" {
		t.Fatalf("expected main field restored, got %+v", blank)
	}
}
