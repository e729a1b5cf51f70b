package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("FETCHCACHE_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "-fetch", "https://example.com/a"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
	if opts.fetchURL != "https://example.com/a" {
		t.Fatalf("fetch 参数未解析: %q", opts.fetchURL)
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv("FETCHCACHE_CONFIG", "")

	opts, err := parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认配置路径应为 config.toml，得到 %s", opts.configPath)
	}
	if _, err := parseCLIFlags([]string{"-unknown"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	_, errOut := captureOutput(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d: %s", code, errOut.String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	captureOutput(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	out, _ := captureOutput(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(out.String(), "fetchcache") {
		t.Fatalf("version 输出应包含 fetchcache 标识")
	}
}

func TestRunFetchOnceUsesDiskCache(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("upstream-body"))
	}))
	defer upstream.Close()

	dir := t.TempDir()
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "error"
StoragePath = "%s"
Compression = "zstd"
`, filepath.ToSlash(filepath.Join(dir, "storage"))))

	for i := 0; i < 2; i++ {
		out, errOut := captureOutput(t)
		code := run(cliOptions{configPath: configPath, fetchURL: upstream.URL + "/data"})
		if code != 0 {
			t.Fatalf("抓取应成功，得到 %d: %s", code, errOut.String())
		}
		if out.String() != "upstream-body" {
			t.Fatalf("unexpected output %q", out.String())
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("第二次抓取应命中磁盘缓存，上游请求 %d 次", hits.Load())
	}
}

func TestRunFetchOnceReportsFailure(t *testing.T) {
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "error"
StoragePath = "%s"
`, filepath.ToSlash(filepath.Join(t.TempDir(), "storage"))))

	_, errOut := captureOutput(t)
	code := run(cliOptions{configPath: configPath, fetchURL: "not-a-url"})
	if code == 0 {
		t.Fatalf("无效 URL 应返回非零退出码")
	}
	if !strings.Contains(errOut.String(), "抓取失败") {
		t.Fatalf("stderr 应包含失败原因: %s", errOut.String())
	}
}
