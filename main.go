package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/fetchcache/internal/cache"
	"github.com/any-hub/fetchcache/internal/config"
	"github.com/any-hub/fetchcache/internal/envelope"
	"github.com/any-hub/fetchcache/internal/fetch"
	"github.com/any-hub/fetchcache/internal/logging"
	"github.com/any-hub/fetchcache/internal/metrics"
	"github.com/any-hub/fetchcache/internal/proxy"
	"github.com/any-hub/fetchcache/internal/request"
	"github.com/any-hub/fetchcache/internal/server"
	"github.com/any-hub/fetchcache/internal/server/routes"
	"github.com/any-hub/fetchcache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	fetchURL    string
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
		fields["freshness"] = cfg.Global.Freshness
		fields["compression"] = cfg.Global.Compression
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 磁盘/内存缓存 → 上游客户端 → 协调器，
	// 单次抓取与 HTTP 服务共用同一套实例。
	rt, err := buildRuntime(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}

	if opts.fetchURL != "" {
		return fetchOnce(rt, opts.fetchURL, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["freshness"] = rt.coordinator.Freshness().String()
	fields["single_flight"] = cfg.Global.SingleFlight
	fields["lenient_decoding"] = cfg.Global.LenientDecoding
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, rt, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// appRuntime 持有进程级共享的协调器与指标。
type appRuntime struct {
	coordinator *fetch.Coordinator
	metrics     *metrics.Recorder
}

func buildRuntime(cfg *config.Config, logger *logrus.Logger) (*appRuntime, error) {
	policy, err := cfg.Global.FreshnessPolicy()
	if err != nil {
		return nil, err
	}

	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存目录失败: %w", err)
	}
	if cfg.Global.CompressionEnabled() {
		store, err = cache.NewCompressedStore(store)
		if err != nil {
			return nil, err
		}
	}

	memory, err := cache.NewMemoryStore(cfg.Global.MaxMemoryCacheEntries, cfg.Global.MaxMemoryCache)
	if err != nil {
		return nil, fmt.Errorf("初始化内存缓存失败: %w", err)
	}

	httpClient, err := server.NewUpstreamClient(cfg)
	if err != nil {
		return nil, err
	}

	recorder := metrics.New()
	coordinator, err := fetch.NewCoordinator(fetch.Options{
		Disk:         store,
		Memory:       memory,
		Transport:    fetch.NewHTTPTransport(httpClient),
		Freshness:    policy,
		Logger:       logger,
		Metrics:      recorder,
		TempDir:      cfg.Global.TempDir,
		SingleFlight: cfg.Global.SingleFlight,
		Codec:        envelope.JSONCodec{Lenient: cfg.Global.LenientDecoding},
	})
	if err != nil {
		return nil, err
	}
	return &appRuntime{coordinator: coordinator, metrics: recorder}, nil
}

// fetchOnce 执行一次 bytes 形态抓取并把响应写到 stdout。
func fetchOnce(rt *appRuntime, rawURL string, logger *logrus.Logger) int {
	res, err := rt.coordinator.BytesSync(context.Background(), request.Get(rawURL))
	fields := logging.FetchFields("bytes", res.Key, string(res.Source))
	fields["action"] = "fetch_once"
	if err != nil {
		logger.WithError(err).WithFields(fields).Error("fetch_failed")
		fmt.Fprintf(stdErr, "抓取失败: %v\n", err)
		return 1
	}
	if res.StoreErr != nil {
		fields["store_error"] = res.StoreErr.Error()
	}
	logger.WithFields(fields).Info("fetch_completed")
	if _, err := stdOut.Write(res.Value); err != nil {
		fmt.Fprintf(stdErr, "写出结果失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("fetchcache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		fetchURL   string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 FETCHCACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&fetchURL, "fetch", "", "抓取一次指定 URL 并输出到 stdout，不启动 HTTP 服务")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("FETCHCACHE_CONFIG")
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
		fetchURL:    fetchURL,
	}, nil
}

func startHTTPServer(cfg *config.Config, rt *appRuntime, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Handler:    proxy.NewHandler(rt.coordinator, logger),
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		Config:      cfg,
		Coordinator: rt.coordinator,
		Metrics:     rt.metrics,
		Logger:      logger,
	})
	server.NotFound(app, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
