package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/asset-hub/asset-hub/internal/assets"
	"github.com/asset-hub/asset-hub/internal/cache"
)

var fixtureModTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type appConfig struct {
	cacheControl  string
	mimeOverrides map[string]string
	overrides     []assets.Override
}

// newAssetApp assembles resolver, cache, handler and router over an in-memory
// store, mirroring the production wiring in main.
func newAssetApp(t *testing.T, cfg appConfig) *fiber.App {
	t.Helper()

	store := fstest.MapFS{
		"assets/example.txt":     {Data: []byte("HELLO THERE"), ModTime: fixtureModTime},
		"assets/index.htm":       {Data: []byte("<h1>home</h1>"), ModTime: fixtureModTime},
		"assets/data.foo":        {Data: []byte("foo-data"), ModTime: fixtureModTime},
		"assets/media/track.mp3": {Data: []byte{0xff, 0xfb, 0x90, 0x00}, ModTime: fixtureModTime},
		"json/data.json":         {Data: []byte(`{"ok":true}`), ModTime: fixtureModTime},
	}

	mappings, err := assets.NewResourceMappings([]assets.Mapping{
		{ResourceRoot: "/assets", URIRoot: "/static"},
		{ResourceRoot: "/json", URIRoot: "/data"},
	})
	if err != nil {
		t.Fatalf("映射表构建失败: %v", err)
	}

	resolver := assets.NewResolver(store, mappings, cfg.overrides, "index.htm")
	assetCache := cache.New(resolver, cache.Spec{MaximumSize: 100})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewAssetHandler(logger, assetCache, NewMimeTable(cfg.mimeOverrides, "utf-8"), cfg.cacheControl)
	app, err := NewApp(AppOptions{
		Logger:   logger,
		Handler:  handler,
		URIRoots: []string{"/static/", "/data/"},
	})
	if err != nil {
		t.Fatalf("构建应用失败: %v", err)
	}
	return app
}

func fetch(t *testing.T, app *fiber.App, target string, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("读取响应失败: %v", err)
	}
	return resp, string(body)
}

func TestServeAssetWithValidators(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != "HELLO THERE" {
		t.Fatalf("body = %q", body)
	}
	etag := resp.Header.Get("Etag")
	if len(etag) != 34 || etag[0] != '"' || etag[len(etag)-1] != '"' {
		t.Fatalf("ETag 格式错误: %q", etag)
	}
	if lm := resp.Header.Get("Last-Modified"); lm != fixtureModTime.Format(http.TimeFormat) {
		t.Fatalf("Last-Modified = %q", lm)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if resp.Header.Get("Cache-Control") != "" {
		t.Fatalf("未配置时不应输出 Cache-Control")
	}
}

func TestIfNoneMatchReturns304(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	first, _ := fetch(t, app, "/static/example.txt", nil)
	etag := first.Header.Get("Etag")

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"If-None-Match": etag})
	if resp.StatusCode != fiber.StatusNotModified {
		t.Fatalf("status = %d, want 304", resp.StatusCode)
	}
	if body != "" {
		t.Fatalf("304 不应携带正文: %q", body)
	}
}

func TestIfNoneMatchMismatchServesBody(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"If-None-Match": `"0000000000000000000000000000000000"`})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != "HELLO THERE" {
		t.Fatalf("body = %q", body)
	}
}

func TestIfModifiedSinceBoundaries(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	testCases := []struct {
		name   string
		stamp  time.Time
		status int
	}{
		{"earlier stamp serves body", fixtureModTime.Add(-time.Hour), fiber.StatusOK},
		{"equal stamp is not modified", fixtureModTime, fiber.StatusNotModified},
		{"later stamp is not modified", fixtureModTime.Add(time.Hour), fiber.StatusNotModified},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := fetch(t, app, "/static/example.txt", map[string]string{
				"If-Modified-Since": tc.stamp.Format(http.TimeFormat),
			})
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestMalformedIfModifiedSinceIsIgnored(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"If-Modified-Since": "not a date"})
	if resp.StatusCode != fiber.StatusOK || body != "HELLO THERE" {
		t.Fatalf("非法时间戳应被忽略: status=%d body=%q", resp.StatusCode, body)
	}
}

func TestSingleRangeRequest(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"Range": "bytes=4-8"})
	if resp.StatusCode != fiber.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	if body != "O THE" {
		t.Fatalf("body = %q, want %q", body, "O THE")
	}
	if cr := resp.Header.Get("Content-Range"); cr != "bytes 4-8/11" {
		t.Fatalf("Content-Range = %q", cr)
	}
	if ar := resp.Header.Get("Accept-Ranges"); ar != "bytes" {
		t.Fatalf("Accept-Ranges = %q", ar)
	}
}

func TestMultipleRangesConcatenated(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"Range": "bytes=0-0,-1"})
	if resp.StatusCode != fiber.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	if body != "HE" {
		t.Fatalf("body = %q, want %q", body, "HE")
	}
	if cr := resp.Header.Get("Content-Range"); cr != "bytes 0-0,10-10/11" {
		t.Fatalf("Content-Range = %q", cr)
	}
}

func TestOpenEndedRange(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{"Range": "bytes=6-"})
	if resp.StatusCode != fiber.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	if body != "THERE" {
		t.Fatalf("body = %q, want %q", body, "THERE")
	}
	if cr := resp.Header.Get("Content-Range"); cr != "bytes 6-10/11" {
		t.Fatalf("Content-Range = %q", cr)
	}
}

func TestUnsatisfiableRanges(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	for _, header := range []string{"bytes=test", "bytes=100-", "bytes=5-2", "items=0-4"} {
		resp, _ := fetch(t, app, "/static/example.txt", map[string]string{"Range": header})
		if resp.StatusCode != fiber.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("Range %q: status = %d, want 416", header, resp.StatusCode)
		}
	}
}

func TestIfRangeMismatchServesFullBody(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{
		"Range":    "bytes=4-8",
		"If-Range": `"0000000000000000000000000000000000"`,
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != "HELLO THERE" {
		t.Fatalf("body = %q", body)
	}
	if resp.Header.Get("Content-Range") != "" {
		t.Fatalf("降级为全量响应时不应带 Content-Range")
	}
}

func TestIfRangeMatchKeepsPartialResponse(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	first, _ := fetch(t, app, "/static/example.txt", nil)
	etag := first.Header.Get("Etag")

	resp, body := fetch(t, app, "/static/example.txt", map[string]string{
		"Range":    "bytes=4-8",
		"If-Range": etag,
	})
	if resp.StatusCode != fiber.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	if body != "O THE" {
		t.Fatalf("body = %q", body)
	}
}

func TestMissingAssetReturns404(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, _ := fetch(t, app, "/static/missing.txt", nil)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDirectoryServesIndexFile(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/static/", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != "<h1>home</h1>" {
		t.Fatalf("body = %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestSecondMappingServesItsOwnRoot(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, body := fetch(t, app, "/data/data.json", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != `{"ok":true}` {
		t.Fatalf("body = %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestCacheControlHeaderIsVerbatim(t *testing.T) {
	app := newAssetApp(t, appConfig{cacheControl: "public, max-age=3600"})

	resp, _ := fetch(t, app, "/static/example.txt", nil)
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestMimeOverrideAppliesToResponse(t *testing.T) {
	app := newAssetApp(t, appConfig{mimeOverrides: map[string]string{"foo": "application/x-foo"}})

	resp, _ := fetch(t, app, "/static/data.foo", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-foo" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestAudioAdvertisesAcceptRanges(t *testing.T) {
	app := newAssetApp(t, appConfig{})

	resp, _ := fetch(t, app, "/static/media/track.mp3", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ar := resp.Header.Get("Accept-Ranges"); ar != "bytes" {
		t.Fatalf("Accept-Ranges = %q", ar)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestOverrideDirectoryServesLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeLocalFile(t, dir, "patched.txt", "from disk")

	app := newAssetApp(t, appConfig{
		overrides: []assets.Override{{URIPrefix: "/static/local", Directory: dir}},
	})

	resp, body := fetch(t, app, "/static/local/patched.txt", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body != "from disk" {
		t.Fatalf("body = %q", body)
	}

	// The store path remains reachable next to the override.
	resp, body = fetch(t, app, "/static/example.txt", nil)
	if resp.StatusCode != fiber.StatusOK || body != "HELLO THERE" {
		t.Fatalf("常规路径受到影响: status=%d body=%q", resp.StatusCode, body)
	}
}

// countingResolver 记录每个路径被解析的次数，用于断言缓存键的稳定性。
type countingResolver struct {
	mu    sync.Mutex
	calls map[string]int
}

func (r *countingResolver) Resolve(requestPath string) (assets.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[requestPath]++
	return assets.NewStaticAsset([]byte("body of "+requestPath), fixtureModTime), nil
}

// Fiber 复用 ctx 时会原地改写 path 缓冲区；缓存键必须是独立拷贝，否则旧条目
// 的键会随下一个请求一起被改写，命中率归零。
func TestCacheKeysSurviveContextReuse(t *testing.T) {
	resolver := &countingResolver{calls: map[string]int{}}
	assetCache := cache.New(resolver, cache.Spec{})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewAssetHandler(logger, assetCache, NewMimeTable(nil, "utf-8"), "")
	app, err := NewApp(AppOptions{
		Logger:   logger,
		Handler:  handler,
		URIRoots: []string{"/static/"},
	})
	if err != nil {
		t.Fatalf("构建应用失败: %v", err)
	}

	const repeats = 200
	pinned := "/static/a.txt"
	for i := 0; i < repeats; i++ {
		if resp, _ := fetch(t, app, pinned, nil); resp.StatusCode != fiber.StatusOK {
			t.Fatalf("第 %d 次请求失败: %d", i, resp.StatusCode)
		}
		// Same length as the pinned path, so a reused buffer would be
		// rewritten in place rather than reallocated.
		other := fmt.Sprintf("/static/%05d", i)
		if resp, _ := fetch(t, app, other, nil); resp.StatusCode != fiber.StatusOK {
			t.Fatalf("交错请求 %s 失败: %d", other, resp.StatusCode)
		}
	}

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if n := resolver.calls[pinned]; n != 1 {
		t.Fatalf("%s 被解析 %d 次，期望 1 次", pinned, n)
	}
	for path, n := range resolver.calls {
		if n != 1 {
			t.Fatalf("%s 被解析 %d 次，期望 1 次", path, n)
		}
	}
	if got := assetCache.Len(); got != repeats+1 {
		t.Fatalf("缓存条目数 = %d, 期望 %d", got, repeats+1)
	}
}

func writeLocalFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("写入本地文件失败: %v", err)
	}
}
