package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asset-hub/asset-hub/internal/assets"
	"github.com/asset-hub/asset-hub/internal/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.AssetRoot == "" {
		return newFieldError("Global.AssetRoot", "不能为空")
	}
	if g.ShutdownTimeout.DurationValue() <= 0 {
		return newFieldError("Global.ShutdownTimeout", "必须大于 0")
	}
	if _, err := cache.ParseSpec(g.CacheSpec); err != nil {
		return newFieldError("Global.CacheSpec", err.Error())
	}

	for i := range c.Mappings {
		m := &c.Mappings[i]
		if !strings.HasPrefix(m.ResourcePath, "/") {
			return newFieldError(mappingField(m.ResourcePath, "ResourcePath"), "必须是以 / 开头的绝对路径")
		}
		if m.ResourcePath == "/" {
			return newFieldError(mappingField(m.ResourcePath, "ResourcePath"), "不能是资源存储根目录")
		}
	}

	// 复用 resolver 的归一化逻辑检查资源根冲突，确保启动前 fail fast。
	if _, err := assets.NewResourceMappings(c.ResourceMappings()); err != nil {
		if errors.Is(err, assets.ErrDuplicateResourceRoot) {
			return newFieldError("Mapping", err.Error())
		}
		return fmt.Errorf("映射表非法: %w", err)
	}

	for i := range c.Overrides {
		o := &c.Overrides[i]
		if strings.TrimSpace(o.URIPath) == "" {
			return newFieldError(overrideField(o.URIPath, "UriPath"), "不能为空")
		}
		if strings.TrimSpace(o.Directory) == "" {
			return newFieldError(overrideField(o.URIPath, "Directory"), "不能为空")
		}
	}

	for ext, mediaType := range c.MimeTypes {
		if strings.TrimSpace(ext) == "" {
			return newFieldError("MimeTypes", "扩展名不能为空")
		}
		if !strings.Contains(mediaType, "/") {
			return newFieldError(fmt.Sprintf("MimeTypes[%s]", ext), "必须是 type/subtype 形式")
		}
	}

	return nil
}
