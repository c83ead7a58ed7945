// Package holder caches rows from a backing store behind a time-to-live.
//
// Map refreshes the whole table when its TTL lapses and falls back to a
// single-key fetch for keys created since. EachExpire tracks a TTL per key and
// only ever fetches single keys. Neither caches misses.
//
// Both are safe for concurrent use. Backing-store calls happen under the
// holder's lock, so concurrent misses for the same key cost one fetch each
// rather than a stampede of parallel ones.
package holder
