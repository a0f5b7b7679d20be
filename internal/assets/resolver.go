package assets

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound 表示没有任何 Mapping/Override 命中该请求路径。
var ErrNotFound = errors.New("asset not found")

// Resolver maps request paths to assets. Overrides are consulted first, then
// the asset store rooted at the matched resource root. It is the load
// function behind the memoizing cache and must be safe for concurrent use;
// it is, because it only reads immutable tables.
type Resolver struct {
	store     fs.FS
	mappings  *ResourceMappings
	overrides []Override
	indexFile string
}

// NewResolver builds a resolver over store. indexFile may be empty, in which
// case directory requests never resolve.
func NewResolver(store fs.FS, mappings *ResourceMappings, overrides []Override, indexFile string) *Resolver {
	return &Resolver{
		store:     store,
		mappings:  mappings,
		overrides: overrides,
		indexFile: indexFile,
	}
}

// Resolve returns the asset for requestPath or ErrNotFound. Only the first
// mapping whose uri root prefixes the path is attempted; a failed resolution
// under that mapping does not fall through to later mappings.
func (r *Resolver) Resolve(requestPath string) (Asset, error) {
	mapping, ok := r.mappings.Match(requestPath)
	if !ok {
		return nil, ErrNotFound
	}

	if asset := r.resolveOverride(requestPath); asset != nil {
		return asset, nil
	}
	return r.resolveStore(requestPath, mapping)
}

// resolveOverride walks the override table in declaration order. An exact
// prefix match addresses the override target itself; otherwise the remainder
// of the request path is resolved under the override directory. Directories
// re-resolve to their index file when one is configured. I/O failures on a
// candidate are non-fatal and move on to the next override.
func (r *Resolver) resolveOverride(requestPath string) Asset {
	for _, override := range r.overrides {
		var candidate string
		switch {
		case requestPath == override.URIPrefix:
			candidate = override.Directory
		case strings.HasPrefix(requestPath, override.URIPrefix):
			candidate = filepath.Join(override.Directory, requestPath[len(override.URIPrefix):])
		default:
			continue
		}

		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			if r.indexFile == "" {
				continue
			}
			candidate = filepath.Join(candidate, r.indexFile)
			if info, err = os.Stat(candidate); err != nil || info.IsDir() {
				continue
			}
		}

		asset, err := NewFileSystemAsset(candidate)
		if err != nil {
			continue
		}
		return asset
	}
	return nil
}

// resolveStore reads the asset out of the store under the matched mapping
// and freezes it into a StaticAsset.
func (r *Resolver) resolveStore(requestPath string, mapping Mapping) (Asset, error) {
	rel := strings.TrimPrefix(requestPath, mapping.URIRoot)
	name := path.Clean(strings.Trim(mapping.ResourceRoot+rel, "/"))
	if name == "" || name == "." {
		name = "."
	}
	if !fs.ValidPath(name) || escapesRoot(name, mapping.ResourceRoot) {
		return nil, ErrNotFound
	}

	info, err := fs.Stat(r.store, name)
	if err != nil {
		return nil, ErrNotFound
	}
	if info.IsDir() {
		// directory mapped but no index file defined
		if r.indexFile == "" {
			return nil, ErrNotFound
		}
		name = path.Join(name, r.indexFile)
		if info, err = fs.Stat(r.store, name); err != nil || info.IsDir() {
			return nil, ErrNotFound
		}
	}

	body, err := fs.ReadFile(r.store, name)
	if err != nil {
		return nil, ErrNotFound
	}

	modTime := info.ModTime()
	if modTime.IsZero() {
		// the store cannot report a modification time
		modTime = time.Now()
	}
	return NewStaticAsset(body, modTime), nil
}

// escapesRoot reports whether the cleaned store path broke out of the
// mapping's resource root via ".." segments in the request.
func escapesRoot(name, resourceRoot string) bool {
	if resourceRoot == "" {
		// store root: fs.ValidPath already rejected leading ".."
		return false
	}
	return name != strings.TrimSuffix(resourceRoot, "/") && !strings.HasPrefix(name, resourceRoot)
}
