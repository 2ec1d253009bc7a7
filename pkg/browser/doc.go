// Package browser manages the pool of headless browser instances and
// the sessions opened inside them.
//
// # Architecture
//
// The package is layered around a small engine abstraction:
//
//   - Engine launches isolated browser contexts. The production
//     implementation drives Chromium through Playwright; tests swap in
//     a fake from the enginetest package.
//   - Instance is one launched browser: an engine context, an optional
//     persistent profile, an optional proxy, and a registry of
//     sessions keyed by caller-chosen ids.
//   - Session is one tab. It owns a single page and an execution slot
//     that serializes requests: one request drives the page at a time,
//     later ones queue until the slot frees.
//   - Pool owns the instances. It launches them (serialized under the
//     pool lock), lists them, and tears them down without waiting for
//     requests already running inside them.
//   - Resolver maps the identity headers of an incoming request to a
//     live session, creating the default browser and missing sessions
//     on demand.
//
// # Profiles
//
// A browser created with a profile name gets a persistent Chromium
// profile directory under the profile store root, so cookies and local
// storage survive daemon restarts. A ProfileMetadata sidecar in each
// directory records creation and use. Instances without a profile are
// ephemeral and leave nothing behind.
//
// # Errors
//
// Failures carry a Code that maps onto the HTTP status the API layer
// returns. Use IsCode or CodeOf to branch on them.
package browser
