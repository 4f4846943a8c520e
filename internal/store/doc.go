// Package store provides the key-value persistence behind garage.Store.
//
// SQLiteStore keeps values in the kv_store table created by the embedded
// migrations; MemoryStore is a map for tests and for running with
// persistence disabled. Booleans are stored as "true"/"false" text.
package store
