package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// 选项 token 采用 name=value 形式，可在 TOML 配置之后覆盖个别字段，例如：
//
//	any-fetch http_clear_cache=1 behavior=any https://example.com/a
//
// input=<file> 从文件继续读取 token，文件中 # 开头的行为注释。

const maxInputDepth = 8

type optionSetter func(cfg *Config, value string) error

var optionSetters = map[string]optionSetter{
	// 除 "0" 以外的任何值都视为开启。
	"http_clear_cache": func(cfg *Config, value string) error {
		cfg.Global.HTTPClearCache = strings.TrimSpace(value) != "0"
		return nil
	},
	"cache_file": func(cfg *Config, value string) error {
		cfg.Global.CacheFile = value
		return nil
	},
	"behavior": func(cfg *Config, value string) error {
		cfg.Global.Behavior = strings.ToLower(strings.TrimSpace(value))
		return nil
	},
	"downloader": func(cfg *Config, value string) error {
		cfg.Global.Downloader = strings.ToLower(strings.TrimSpace(value))
		return nil
	},
	"proxy": func(cfg *Config, value string) error {
		proxy, err := parseProxyOption(value)
		if err != nil {
			return err
		}
		cfg.Proxy = proxy
		return nil
	},
	"log_level": func(cfg *Config, value string) error {
		cfg.Global.LogLevel = value
		return nil
	},
	"timeout": func(cfg *Config, value string) error {
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Global.UpstreamTimeout = d
		return nil
	},
	"user_agent": func(cfg *Config, value string) error {
		cfg.Global.UserAgent = value
		return nil
	},
	"cookie": func(cfg *Config, value string) error {
		if value != "" {
			cfg.Global.Cookies = append(cfg.Global.Cookies, value)
		}
		return nil
	},
}

// deprecatedOptions 记录已弃用的选项名及其替代项，遇到时直接报错提示。
var deprecatedOptions = map[string]string{
	"http_cache_file": "cache_file",
	"proxy_type":      "proxy",
	"proxy_host":      "proxy",
	"proxy_port":      "proxy",
}

// IsOptionToken 判断 CLI 位置参数是否为 name=value 选项（URL 不会被误判）。
// 名称不区分大小写，与 applyToken 一致。
func IsOptionToken(token string) bool {
	name, _, ok := strings.Cut(strings.TrimSpace(token), "=")
	name = strings.ToLower(name)
	if !ok || name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// ApplyOptions 依次应用 name=value 选项，并在结束后重新校验配置。
func ApplyOptions(cfg *Config, tokens []string) error {
	for _, token := range tokens {
		if err := applyToken(cfg, token, 0); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func applyToken(cfg *Config, token string, depth int) error {
	name, value, ok := strings.Cut(strings.TrimSpace(token), "=")
	if !ok {
		return fmt.Errorf("无法识别的参数 '%s'，期望格式 name=value", token)
	}
	name = strings.ToLower(strings.TrimSpace(name))

	if name == "input" {
		return applyInputFile(cfg, value, depth+1)
	}
	if replacement, ok := deprecatedOptions[name]; ok {
		return newFieldError(optionField(name), "选项已弃用，请改用 "+replacement)
	}
	setter, ok := optionSetters[name]
	if !ok {
		return newFieldError(optionField(name), fmt.Sprintf("未知选项，值: '%s'", value))
	}
	if err := setter(cfg, value); err != nil {
		return newFieldError(optionField(name), err.Error())
	}
	return nil
}

func applyInputFile(cfg *Config, path string, depth int) error {
	if depth > maxInputDepth {
		return newFieldError(optionField("input"), "嵌套层数过深")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("无法打开参数文件 '%s': %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, token := range strings.Fields(line) {
			if err := applyToken(cfg, token, depth); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

// parseProxyOption 解析 type,host,port 形式的代理选项；none 关闭代理。
func parseProxyOption(value string) (ProxyConfig, error) {
	parts := strings.Split(value, ",")
	if len(parts) == 1 && strings.EqualFold(strings.TrimSpace(parts[0]), "none") {
		return ProxyConfig{Type: "none"}, nil
	}
	if len(parts) != 3 {
		return ProxyConfig{}, fmt.Errorf("格式应为 type,host,port")
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return ProxyConfig{}, fmt.Errorf("端口无效: %s", parts[2])
	}
	return ProxyConfig{
		Type: strings.ToLower(strings.TrimSpace(parts[0])),
		Host: strings.TrimSpace(parts[1]),
		Port: port,
	}, nil
}
