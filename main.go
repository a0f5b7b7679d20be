package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/asset-hub/asset-hub/internal/assets"
	"github.com/asset-hub/asset-hub/internal/cache"
	"github.com/asset-hub/asset-hub/internal/config"
	"github.com/asset-hub/asset-hub/internal/logging"
	"github.com/asset-hub/asset-hub/internal/server"
	"github.com/asset-hub/asset-hub/internal/server/routes"
	"github.com/asset-hub/asset-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["mappings"] = len(cfg.ResourceMappings())
		fields["overrides"] = len(cfg.Overrides)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	app, mounts, err := buildApp(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "构建服务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["mounts"] = mounts
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_spec"] = cfg.Global.CacheSpec
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serveHTTP(cfg, app, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// buildApp 按 “配置 → 映射表 → resolver → 缓存 → Fiber” 的顺序完成装配，
// 所有挂载点共享同一个缓存实例。
func buildApp(cfg *config.Config, logger *logrus.Logger) (*fiber.App, []string, error) {
	mappings, err := assets.NewResourceMappings(cfg.ResourceMappings())
	if err != nil {
		return nil, nil, err
	}

	spec, err := cache.ParseSpec(cfg.Global.CacheSpec)
	if err != nil {
		return nil, nil, err
	}

	resolver := assets.NewResolver(
		os.DirFS(cfg.Global.AssetRoot),
		mappings,
		cfg.AssetOverrides(),
		cfg.Global.IndexFile,
	)
	assetCache := cache.New(resolver, spec)

	handler := server.NewAssetHandler(
		logger,
		assetCache,
		server.NewMimeTable(cfg.MimeTypes, cfg.Global.DefaultCharset),
		cfg.Global.CacheControlHeader,
	)

	mounts := make([]string, 0, len(mappings.Entries()))
	for _, m := range mappings.Entries() {
		mounts = append(mounts, m.URIRoot)
	}

	app, err := server.NewApp(server.AppOptions{
		Logger:   logger,
		Handler:  handler,
		URIRoots: mounts,
	})
	if err != nil {
		return nil, nil, err
	}

	routes.RegisterStatusRoutes(app, routes.StatusInfo{
		Mounts:    mounts,
		Cache:     assetCache,
		CacheSpec: cfg.Global.CacheSpec,
		IndexFile: cfg.Global.IndexFile,
	})
	return app, mounts, nil
}

func serveHTTP(cfg *config.Config, app *fiber.App, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.WithFields(logrus.Fields{
			"action": "shutdown",
			"signal": sig.String(),
		}).Info("收到退出信号，开始优雅关停")
		if err := app.ShutdownWithTimeout(cfg.Global.ShutdownTimeout.DurationValue()); err != nil {
			logger.WithError(err).Warn("优雅关停超时")
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("asset-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ASSET_HUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ASSET_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
