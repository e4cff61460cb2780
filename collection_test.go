package confstore

import (
	"testing"
)

type phone struct {
	Number *string `conf:"number"`
}

func phoneSchema() Schema {
	return Schema{Name: "phone", Fields: []Field{{Name: "number"}}}
}

func newPhoneCollection(t *testing.T, items *Items, opts ...CollectionOption) *CollectionStore {
	t.Helper()
	store, err := NewCollectionStore(phoneSchema(), items, "number:", func() any { return &phone{} }, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func TestCollectionDumpOneSectionPerItem(t *testing.T) {
	items := NewItems()
	items.Set("home", &phone{Number: ptrTo("555-111")})
	items.Set("work", &phone{Number: ptrTo("555-222")})

	store := newPhoneCollection(t, items)
	doc := NewDocument()
	if err := store.DumpInto(doc); err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}

	names := doc.SectionNames()
	if len(names) != 2 || names[0] != "number:home" || names[1] != "number:work" {
		t.Fatalf("expected sections in backing order, got %v", names)
	}
	if got, _ := doc.Section("number:home").Get("number"); got != "555-111" {
		t.Fatalf("expected home number, got %q", got)
	}
}

func TestCollectionReloadIntoEmptyMapping(t *testing.T) {
	source := NewItems()
	source.Set("home", &phone{Number: ptrTo("555-111")})
	source.Set("work", &phone{Number: ptrTo("555-222")})
	doc := NewDocument()
	if err := newPhoneCollection(t, source).DumpInto(doc); err != nil {
		t.Fatalf("unexpected dump error: %v", err)
	}

	items := NewItems()
	event := newChangeEvent(nil)
	if err := newPhoneCollection(t, items).LoadFrom(doc, event); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	keys := items.Keys()
	if len(keys) != 2 || keys[0] != "home" || keys[1] != "work" {
		t.Fatalf("expected both keys restored in order, got %v", keys)
	}
	for key, want := range map[string]string{"home": "555-111", "work": "555-222"} {
		item, _ := items.Get(key)
		restored, ok := item.(*phone)
		if !ok || restored.Number == nil || *restored.Number != want {
			t.Fatalf("key %q: expected number %q, got %+v", key, want, item)
		}
	}
}

func TestCollectionMutatesExistingItemInPlace(t *testing.T) {
	home := &phone{Number: ptrTo("555-000")}
	items := NewItems()
	items.Set("home", home)

	doc := NewDocument()
	doc.EnsureSection("number:home").Set("number", "555-111")
	doc.EnsureSection("number:work").Set("number", "555-222")

	event := newChangeEvent(nil)
	if err := newPhoneCollection(t, items).LoadFrom(doc, event); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	item, _ := items.Get("home")
	if item != any(home) {
		t.Fatalf("expected home to be mutated in place, got a new item")
	}
	if *home.Number != "555-111" {
		t.Fatalf("expected home mutated, got %q", *home.Number)
	}

	work, ok := items.Get("work")
	if !ok {
		t.Fatalf("expected work to be created")
	}
	if created := work.(*phone); created.Number == nil || *created.Number != "555-222" {
		t.Fatalf("expected work number, got %+v", created)
	}

	// Mutation participates in the nested change flow.
	if len(event.Changes) == 0 {
		t.Fatalf("expected nested change descriptions")
	}
	for _, change := range event.Changes {
		if change.Schema.Name != "phone" {
			t.Fatalf("expected nested schema, got %q", change.Schema.Name)
		}
	}
}

func TestCollectionKeepsItemsWithMissingSections(t *testing.T) {
	items := NewItems()
	items.Set("home", &phone{Number: ptrTo("555-111")})

	doc := NewDocument()
	doc.EnsureSection("number:work").Set("number", "555-222")

	if err := newPhoneCollection(t, items).LoadFrom(doc, newChangeEvent(nil)); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if !items.Has("home") {
		t.Fatalf("expected home to survive a missing section")
	}
	if !items.Has("work") {
		t.Fatalf("expected work to be created")
	}
}

func TestCollectionPruneRemovesMissingSections(t *testing.T) {
	items := NewItems()
	items.Set("home", &phone{Number: ptrTo("555-111")})
	items.Set("old", &phone{Number: ptrTo("555-999")})

	doc := NewDocument()
	doc.EnsureSection("number:home").Set("number", "555-111")

	store := newPhoneCollection(t, items, WithPrune(true))
	if err := store.LoadFrom(doc, newChangeEvent(nil)); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if items.Has("old") {
		t.Fatalf("expected old to be pruned")
	}
	if !items.Has("home") {
		t.Fatalf("expected home to remain")
	}
}

func TestCollectionIgnoresUnrelatedSections(t *testing.T) {
	items := NewItems()
	doc := NewDocument()
	doc.EnsureSection("generic").Set("firstName", "Stephan")

	if err := newPhoneCollection(t, items).LoadFrom(doc, newChangeEvent(nil)); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if items.Len() != 0 {
		t.Fatalf("expected no items, got %v", items.Keys())
	}
}
