package domain

// CacheName is the version tag of the current cache generation. Bumping it
// starts a new, empty cache; earlier generations are left in place.
const CacheName = "location-tracker-v2"

// OfflineMessage is the body served when neither cache nor network answers.
const OfflineMessage = "Offline mode. Please check your connection."

// SyncTagLocations is the background sync tag for deferred location uploads.
const SyncTagLocations = "location-sync"

// PrecacheURLs lists the asset paths stored at install time.
var PrecacheURLs = []string{
	"/",
	"/static/styles.css",
	"/manifest.json",
}
