// Package domain implements the offline cache shim for the location-tracker
// web app.
//
// A Worker owns three listeners keyed by event kind. Install preloads a fixed
// asset list into the current named cache. Fetch answers a request from the
// cache, then the network, then a fixed offline message. Sync acknowledges a
// background sync tag without doing any deferred work.
package domain
