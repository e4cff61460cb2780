// Package confstore converts between in-memory objects and flat,
// human-editable section/key-value documents, driven by a schema of named,
// typed fields.
//
// A Store binds one Schema to one target struct: Dump writes the struct's
// fields into a single-section Document through type codecs, and Load applies
// a Document back onto the struct, reporting what changed as one ChangeEvent
// per call. CollectionStore multiplexes a schema across an ordered map of
// items, one section per item; ExternalStore keeps a store's data in a
// separate document behind a config-path reference.
//
// The core only produces and consumes parsed Document values. Reading and
// writing the on-disk INI text lives in pkg/inidoc, expression-backed field
// overrides in pkg/exprcodec, and file watching in pkg/watch.
package confstore
