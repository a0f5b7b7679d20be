package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/asset-hub/asset-hub/internal/cache"
	"github.com/asset-hub/asset-hub/internal/version"
)

// StatusInfo 汇总诊断接口需要展示的运行时信息。
type StatusInfo struct {
	Mounts    []string
	Cache     *cache.Cache
	CacheSpec string
	IndexFile string
}

// RegisterStatusRoutes 暴露 /-/status 诊断接口，供 SRE 查询挂载点与缓存规模。
func RegisterStatusRoutes(app *fiber.App, info StatusInfo) {
	if app == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		payload := fiber.Map{
			"version":    version.Full(),
			"mounts":     info.Mounts,
			"cache_spec": info.CacheSpec,
			"index_file": info.IndexFile,
		}
		if info.Cache != nil {
			payload["cache_entries"] = info.Cache.Len()
		}
		return c.JSON(payload)
	})
}
