// Package types holds the error taxonomy and small shared value types used by
// the hive navigator, the EVTX decoder and the artifact extractors.
//
// Errors carry a stable Kind so callers can branch on intent rather than on
// message text. "Not found" is never reported as an error by the navigation
// API; it is a separate boolean result so that a missing artifact cannot be
// confused with a corrupt hive.
package types
