// Package cache holds the two byte stores used by the fetch coordinator.
// The disk Store persists encoded envelopes at a location derived only from
// the cache key (temp file + rename, one writer per key) and never expires
// entries on its own. MemoryStore is the in-process LRU consulted ahead of
// the disk by the download variant. Both speak plain bytes; envelope encoding
// and freshness decisions live in higher layers.
package cache
