// Package cache defines the in-memory URL store shared by every fetch in the
// process, together with the versioned binary file it is persisted to between
// runs. One mutex guards the whole map: lookups, downloads performed by the
// fetch orchestrator, clear, load and save all run under it, so at most one
// download is ever in flight per store. Persistence is fail-soft: load and save
// report an outcome value instead of an error and never leave a half-applied
// state visible to callers.
package cache
