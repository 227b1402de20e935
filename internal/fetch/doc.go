// Package fetch implements the cached fetch operation on top of a cache.Store,
// an era.Clock and a Downloader. A Fetcher decides whether an entry is stale
// for the requested Behavior, performs at most one conditional download while
// holding the store lock, and commits the outcome to the entry before the
// optional content check runs.
package fetch
