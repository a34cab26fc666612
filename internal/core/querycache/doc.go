// Package querycache is a keyed store of fetched results shared by every
// consumer in the process.
//
// Each key maps to one entry with a staleness window and a retry ceiling.
// Concurrent reads of a key converge on a single fetch. An entry whose data
// has aged past its window is served immediately while one background
// refetch runs; an entry marked stale by Invalidate is refetched before the
// next reader sees it. Clear drops everything, including the results of
// fetches still in flight.
package querycache
