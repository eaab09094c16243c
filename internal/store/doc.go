// Package store implements the persisted state: the read-only user
// registration document, the enchanted-clock usage ledger, and the
// notification history.
//
// Every store is a single JSON document loaded fully into memory and
// written back atomically (temp file + rename). Read or parse failures
// are never fatal: a broken document loads as empty with a warning.
package store
