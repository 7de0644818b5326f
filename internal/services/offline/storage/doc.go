// Package storage declares persistence contracts for named offline caches.
//
// A cache is addressed by its version name and maps request keys to stored
// responses. Stores never evict, expire, or migrate entries between names.
package storage
