// Package metrics defines the Prometheus collectors for the tagging index:
// persistent store operations and retries, published change events, folder
// tracking, thumbnail generation, filesystem listings and the HTTP surface.
//
// All collectors are registered via promauto at package load and are safe for
// concurrent use.
package metrics
