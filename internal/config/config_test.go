package config

import (
	"testing"
	"time"
)

func TestValidateProxy(t *testing.T) {
	testCases := []struct {
		name      string
		proxy     ProxyConfig
		shouldErr bool
	}{
		{"disabled", ProxyConfig{Type: "none"}, false},
		{"empty", ProxyConfig{}, false},
		{"http ok", ProxyConfig{Type: "http", Host: "p.local", Port: 8080}, false},
		{"socks5 ok", ProxyConfig{Type: "socks5", Host: "p.local", Port: 1080}, false},
		{"missing host", ProxyConfig{Type: "http", Port: 8080}, true},
		{"bad port", ProxyConfig{Type: "http", Host: "p.local", Port: 70000}, true},
		{"unsupported type", ProxyConfig{Type: "gopher", Host: "p.local", Port: 70}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Proxy = tc.proxy
			err := cfg.Validate()
			if tc.shouldErr && err == nil {
				t.Fatalf("expected error for proxy %+v", tc.proxy)
			}
			if !tc.shouldErr && err != nil {
				t.Fatalf("unexpected error for proxy %+v: %v", tc.proxy, err)
			}
		})
	}
}

func TestValidateRejectsUnknownDownloader(t *testing.T) {
	cfg := validConfig()
	cfg.Global.Downloader = "curl"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("未知下载器应报错")
	}
}

func TestValidateRequiresCacheFile(t *testing.T) {
	cfg := validConfig()
	cfg.Global.CacheFile = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("CacheFile 为空时应报错")
	}
}

func TestProxyURL(t *testing.T) {
	proxy := ProxyConfig{Type: "SOCKS5", Host: "127.0.0.1", Port: 1080}
	u := proxy.URL()
	if u == nil || u.String() != "socks5://127.0.0.1:1080" {
		t.Fatalf("unexpected proxy url: %v", u)
	}
	if (ProxyConfig{Type: "none"}).URL() != nil {
		t.Fatalf("none 不应生成代理地址")
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:        "info",
			CacheFile:       "cache.dat",
			Behavior:        "current",
			Downloader:      "http",
			UpstreamTimeout: Duration(time.Second),
			ListenPort:      5080,
		},
	}
}
