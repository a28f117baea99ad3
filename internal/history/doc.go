// Package history keeps a SQLite ledger of batch runs.
//
// Each run records its identifier, timing, and counts; each file records its
// status, output path, error kind, and a summary of the transcript. The
// database lives under the murmur data directory and is opened in WAL mode so
// `murmur history` can read while a batch is writing.
package history
