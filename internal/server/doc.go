// Package server hosts the Fiber HTTP service and the asset protocol layer.
// It owns the conditional-request and byte-range handling for resolved
// assets, the per-request middleware chain (request IDs, panic recovery),
// and the mount glue that registers one shared AssetHandler under every
// configured uri root. Content-type resolution lives here too, since it is a
// response concern rather than a resolution concern. Keep exports narrow and
// accept explicit dependencies; the handler takes its cache and mime table
// at construction and holds no ambient state.
package server
