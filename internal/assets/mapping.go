package assets

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateResourceRoot 表示两条 Mapping 归一化后落在同一个资源根上，
// 属于启动期致命配置错误。
var ErrDuplicateResourceRoot = errors.New("duplicate resource root")

// Mapping pairs a resource root inside the asset store with the uri root the
// assets are served under. Both sides are stored normalized: the resource
// root without a leading slash and with a trailing one ("" for the store
// root), the uri root with both ("/" on its own for the bare root).
type Mapping struct {
	ResourceRoot string
	URIRoot      string
}

// ResourceMappings is the ordered mapping table. Declaration order is
// significant: the first uri root that prefixes a request path wins.
type ResourceMappings struct {
	entries []Mapping
}

// NewResourceMappings normalizes the raw table and rejects mappings whose
// normalized resource roots collide.
func NewResourceMappings(raw []Mapping) (*ResourceMappings, error) {
	m := &ResourceMappings{entries: make([]Mapping, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))

	for _, entry := range raw {
		resourceRoot := normalizeResourceRoot(entry.ResourceRoot)
		uriRoot := normalizeURIRoot(entry.URIRoot)

		if _, ok := seen[resourceRoot]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResourceRoot, resourceRoot)
		}
		seen[resourceRoot] = struct{}{}

		m.entries = append(m.entries, Mapping{ResourceRoot: resourceRoot, URIRoot: uriRoot})
	}
	return m, nil
}

// Match returns the first mapping whose uri root prefixes requestPath, in
// declaration order.
func (m *ResourceMappings) Match(requestPath string) (Mapping, bool) {
	for _, entry := range m.entries {
		if strings.HasPrefix(requestPath, entry.URIRoot) {
			return entry, true
		}
	}
	return Mapping{}, false
}

// Entries 返回归一化后的映射表副本，供挂载路由时遍历。
func (m *ResourceMappings) Entries() []Mapping {
	out := make([]Mapping, len(m.entries))
	copy(out, m.entries)
	return out
}

// normalizeResourceRoot trims surrounding slashes and appends one, so the
// root concatenates cleanly with relative paths. The empty string addresses
// the root of the asset store.
func normalizeResourceRoot(root string) string {
	trimmed := strings.Trim(root, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + "/"
}

// normalizeURIRoot 归一化为以 "/" 开头、以 "/" 结尾的形式，空值退化为 "/"。
func normalizeURIRoot(root string) string {
	trimmed := strings.Trim(root, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

// Override redirects a uri prefix to a filesystem directory, bypassing the
// asset store. An exact match of the whole request path beats a prefix
// match.
type Override struct {
	URIPrefix string
	Directory string
}
