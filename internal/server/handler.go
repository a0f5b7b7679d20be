package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/asset-hub/asset-hub/internal/assets"
	"github.com/asset-hub/asset-hub/internal/cache"
	"github.com/asset-hub/asset-hub/internal/logging"
)

// AssetHandler evaluates conditional-request and byte-range semantics for
// cached assets. One handler instance serves every mount point, so all of
// them share the same cache.
type AssetHandler struct {
	logger       *logrus.Logger
	cache        *cache.Cache
	mimes        *MimeTable
	cacheControl string
}

// NewAssetHandler 构建协议层处理器；cacheControl 为空时不输出 Cache-Control。
func NewAssetHandler(logger *logrus.Logger, c *cache.Cache, mimes *MimeTable, cacheControl string) *AssetHandler {
	return &AssetHandler{
		logger:       logger,
		cache:        c,
		mimes:        mimes,
		cacheControl: cacheControl,
	}
}

// Handle serves one request. Whatever goes wrong inside the pipeline, the
// client only ever sees a plain 404; nothing internal leaks.
func (h *AssetHandler) Handle(c fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithFields(logrus.Fields{
				"action":     "asset_panic",
				"path":       c.Path(),
				"request_id": RequestID(c),
				"panic":      r,
			}).Warn("asset pipeline failure")
			err = c.SendStatus(fiber.StatusNotFound)
		}
	}()
	return h.serve(c)
}

func (h *AssetHandler) serve(c fiber.Ctx) error {
	// Copy the path out of fasthttp's reused buffer: the cache holds on to
	// the key long after this request's ctx goes back to the pool.
	requestPath := string(c.Request().URI().Path())
	if isDiagnosticsPath(requestPath) {
		return c.Next()
	}

	asset, err := h.cache.Get(requestPath)
	if err != nil {
		if !errors.Is(err, assets.ErrNotFound) {
			h.logger.WithError(err).WithField("path", requestPath).Warn("asset_lookup_failed")
		}
		return h.finish(c, fiber.StatusNotFound, false)
	}
	snap := asset.Snapshot()

	if clientHasCurrent(c, snap) {
		return h.finish(c, fiber.StatusNotModified, false)
	}

	status := fiber.StatusOK
	var ranges []assets.ByteRange

	if rangeHeader := c.Get(fiber.HeaderRange); rangeHeader != "" {
		// A stale If-Range validator downgrades the request to a full 200.
		ifRange := c.Get(fiber.HeaderIfRange)
		if ifRange == "" || ifRange == snap.ETag {
			ranges, err = assets.ParseRangeHeader(rangeHeader, len(snap.Body))
			if err != nil {
				return h.finish(c, fiber.StatusRequestedRangeNotSatisfiable, false)
			}
			status = fiber.StatusPartialContent
			c.Set(fiber.HeaderContentRange, formatContentRange(ranges, len(snap.Body)))
		}
	}

	c.Set(fiber.HeaderETag, snap.ETag)
	c.Set(fiber.HeaderLastModified, snap.ModTime.UTC().Format(http.TimeFormat))
	if h.cacheControl != "" {
		c.Set(fiber.HeaderCacheControl, h.cacheControl)
	}

	contentType := h.mimes.ContentType(requestPath)
	ranged := status == fiber.StatusPartialContent
	if wantsAcceptRanges(contentType) || ranged {
		c.Set(fiber.HeaderAcceptRanges, "bytes")
	}
	c.Set(fiber.HeaderContentType, contentType)

	h.logger.WithFields(logging.RequestFields(requestPath, status, ranged)).Debug("asset served")

	c.Status(status)
	if ranged {
		return c.Send(concatRanges(snap.Body, ranges))
	}
	return c.Send(snap.Body)
}

// finish 输出一个不带正文语义的终态状态码，并记录调试日志。
func (h *AssetHandler) finish(c fiber.Ctx, status int, ranged bool) error {
	h.logger.WithFields(logging.RequestFields(c.Path(), status, ranged)).Debug("asset request finished")
	return c.SendStatus(status)
}

// clientHasCurrent implements the 304 short-circuit: either a matching
// If-None-Match ETag or an If-Modified-Since stamp at or after the asset's
// last-modified time satisfies the client's copy.
func clientHasCurrent(c fiber.Ctx, snap assets.Snapshot) bool {
	if match := c.Get(fiber.HeaderIfNoneMatch); match != "" && match == snap.ETag {
		return true
	}
	if since := c.Get(fiber.HeaderIfModifiedSince); since != "" {
		if stamp, err := http.ParseTime(since); err == nil && !stamp.Before(snap.ModTime) {
			return true
		}
	}
	return false
}

// formatContentRange renders "bytes a-b,c-d/length" with the resolved
// ranges in header order.
func formatContentRange(ranges []assets.ByteRange, length int) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return "bytes " + strings.Join(parts, ",") + "/" + strconv.Itoa(length)
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}

// concatRanges copies the requested byte windows out of body in order.
func concatRanges(body []byte, ranges []assets.ByteRange) []byte {
	total := 0
	for _, r := range ranges {
		total += r.Length()
	}
	out := make([]byte, 0, total)
	for _, r := range ranges {
		out = append(out, body[r.Start:r.End+1]...)
	}
	return out
}
