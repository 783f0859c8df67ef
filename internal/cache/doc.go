// Package cache memoizes prepared datasets keyed by the identity of the files
// they were built from. Entries are immutable; invalidation is explicit or by TTL.
package cache
