// Package memstore provides the named-document persistence collaborator.
//
// A Store holds JSON-serialized documents addressed by name ("memories",
// "mistakes", ...). Reads are total: a missing or unreadable document
// leaves the caller's default value untouched and returns nil, so callers
// never need a migration or recovery path. Only genuine write failures
// surface as errors, and callers treat those as best-effort durability —
// in-memory state stays authoritative for the rest of the session.
package memstore

// Store is the persistence boundary shared by the knowledge store and the
// mistakes collection.
type Store interface {
	// Read unmarshals the named document into v. If the document is
	// missing or cannot be parsed, v is left as the caller's default and
	// the return is nil.
	Read(name string, v any) error

	// Write marshals v and replaces the named document.
	Write(name string, v any) error
}
