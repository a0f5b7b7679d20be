// Package cache memoizes resolved assets keyed on the request path. Loads go
// through a singleflight group so concurrent requests for the same uncached
// key share a single resolver call, and entries are evicted by a recency
// policy capped either on entry count or on aggregate body weight, per the
// configured cache spec. "Not found" outcomes are memoized too, so repeated
// probes for a missing path do not rescan the asset store. The protocol
// layer depends on this package instead of hitting the resolver directly.
package cache
