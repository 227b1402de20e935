package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-fetch/internal/cache"
	"github.com/any-hub/any-fetch/internal/config"
	"github.com/any-hub/any-fetch/internal/era"
	"github.com/any-hub/any-fetch/internal/fetch"
	"github.com/any-hub/any-fetch/internal/fetch/downloader"
	"github.com/any-hub/any-fetch/internal/logging"
	"github.com/any-hub/any-fetch/internal/version"
)

const defaultConfigPath = "any-fetch.toml"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	dump        bool
	serve       bool
	subordinate bool
	// optionTokens 是 name=value 形式的位置参数，urls 是其余位置参数。
	optionTokens []string
	urls         []string
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
	if err := config.ApplyOptions(cfg, opts.optionTokens); err != nil {
		fmt.Fprintf(stdErr, "解析选项失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	dl, err := downloader.New(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化下载器失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["downloader"] = cfg.Global.Downloader
		fields["behavior"] = cfg.Global.Behavior
		fields["proxy"] = cfg.Proxy.String()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序固定为“配置 → 缓存文件 → clear 选项 → 抓取”，保证 clear 先于任何抓取生效。
	store := cache.NewStore()
	loadCache(store, cfg.Global.CacheFile, logger)

	if opts.dump {
		dumpCache(store)
		return 0
	}

	if store.ApplyClearOption(cfg.Global.HTTPClearCache, opts.subordinate) {
		logger.WithFields(logging.BaseFields("cache_clear", opts.configPath)).Info("缓存已清空")
	}

	clock := era.NewClock()
	fetcher := fetch.NewFetcher(store, clock, dl, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["downloader"] = cfg.Global.Downloader
	fields["behavior"] = cfg.Global.Behavior
	fields["cacheFile"] = cfg.Global.CacheFile
	fields["version"] = version.Full()
	logger.WithFields(fields).Debug("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if opts.serve {
		if err := startHTTPServer(ctx, cfg, store, clock, fetcher, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			code = 1
		}
	} else {
		code = runBatch(ctx, cfg, opts.urls, clock, fetcher)
	}

	saveCache(store, cfg.Global.CacheFile, logger)
	return code
}

// runBatch 把每个 URL 视为一个工作单元：先推进 era，再按配置的行为抓取。
func runBatch(ctx context.Context, cfg *config.Config, urls []string, clock *era.Clock, fetcher *fetch.Fetcher) int {
	behavior, err := fetch.ParseBehavior(cfg.Global.Behavior)
	if err != nil {
		fmt.Fprintf(stdErr, "解析缓存行为失败: %v\n", err)
		return 1
	}

	code := 0
	for _, rawURL := range urls {
		clock.Advance()
		body, ok := fetcher.Get(ctx, rawURL, behavior)
		if !ok {
			fmt.Fprintf(stdErr, "Unable to download %s\n", rawURL)
			code = 1
			continue
		}
		if _, err := stdOut.Write(body); err != nil {
			fmt.Fprintf(stdErr, "写出正文失败: %v\n", err)
			return 1
		}
	}
	return code
}

func loadCache(store *cache.Store, path string, logger *logrus.Logger) {
	if path == "" {
		return
	}
	result := store.LoadFile(path)
	entry := logger.WithFields(logging.PersistFields("cache_load", path, result.Outcome.String(), result.Entries))
	switch result.Outcome {
	case cache.LoadOK, cache.LoadMissing:
		entry.Debug("缓存文件加载完成")
	default:
		entry.WithError(result.Err).Warn("缓存文件不可用，已忽略")
	}
}

func saveCache(store *cache.Store, path string, logger *logrus.Logger) {
	if path == "" {
		return
	}
	result := store.SaveFile(path)
	fields := logging.PersistFields("cache_save", path, result.Outcome.String(), result.Entries)
	fields["skipped"] = result.Skipped
	if result.Outcome != cache.SaveOK {
		logger.WithFields(fields).WithError(result.Err).Warn("缓存文件保存失败")
		return
	}
	logger.WithFields(fields).Debug("缓存文件已保存")
}

// dumpCache 逐条输出缓存内容：先是 URL 与 token，再是正文。
func dumpCache(store *cache.Store) {
	for _, entry := range store.Entries() {
		fmt.Fprintf(stdOut, "URL: %q (%s)\n", entry.URL, entry.Token)
		_, _ = stdOut.Write(entry.Body)
		fmt.Fprintln(stdOut)
	}
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("any-fetch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		checkOnly   bool
		showVer     bool
		dump        bool
		serve       bool
		subordinate bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./any-fetch.toml，可被 ANY_FETCH_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&dump, "dump", false, "输出缓存文件内容后退出")
	fs.BoolVar(&serve, "serve", false, "以 HTTP 服务方式运行")
	fs.BoolVar(&subordinate, "subordinate", false, "作为子实例运行，忽略 http_clear_cache")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("ANY_FETCH_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	opts := cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		dump:        dump,
		serve:       serve,
		subordinate: subordinate,
	}
	for _, arg := range fs.Args() {
		if config.IsOptionToken(arg) {
			opts.optionTokens = append(opts.optionTokens, arg)
			continue
		}
		opts.urls = append(opts.urls, arg)
	}
	return opts, nil
}
