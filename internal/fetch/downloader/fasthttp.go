package downloader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"

	"github.com/any-hub/any-fetch/internal/fetch"
)

// FastHTTP 基于 fasthttp.Client 的下载后端，适合大量小请求的批处理场景。
type FastHTTP struct {
	client *fasthttp.Client
	opts   Options
}

// NewFastHTTP 构造 fasthttp 客户端，代理通过 fasthttpproxy 提供的拨号器接入。
func NewFastHTTP(opts Options) (*FastHTTP, error) {
	client := &fasthttp.Client{
		Name:                      opts.UserAgent,
		ReadTimeout:               opts.Timeout,
		WriteTimeout:              opts.Timeout,
		MaxIdemponentCallAttempts: 1,
	}

	if opts.Proxy != nil {
		addr := opts.Proxy.Host
		switch opts.Proxy.Scheme {
		case "http":
			client.Dial = fasthttpproxy.FasthttpHTTPDialerTimeout(addr, opts.Timeout)
		case "socks5":
			client.Dial = fasthttpproxy.FasthttpSocksDialer(opts.Proxy.String())
		default:
			return nil, fmt.Errorf("fasthttp downloader does not support %s proxies", opts.Proxy.Scheme)
		}
	}

	return &FastHTTP{client: client, opts: opts}, nil
}

// Attempt 与 HTTP 后端语义一致；fasthttp 不接收 context，超时由客户端的读写超时控制。
func (d *FastHTTP) Attempt(ctx context.Context, requestURL, token string) (fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return fetch.Response{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")
	for key, value := range requestHeaders(d.opts, token) {
		req.Header.Set(key, value)
	}

	if err := d.client.DoRedirects(req, resp, maxRedirects); err != nil {
		return fetch.Response{}, err
	}

	switch status := resp.StatusCode(); status {
	case fasthttp.StatusNotModified:
		return fetch.Response{NotModified: true}, nil
	case fasthttp.StatusOK:
		body, err := responseBody(resp)
		if err != nil {
			return fetch.Response{}, fmt.Errorf("read body: %w", err)
		}
		return fetch.Response{
			Body:  body,
			Token: string(resp.Header.Peek(fasthttp.HeaderLastModified)),
		}, nil
	default:
		return fetch.Response{}, &StatusError{URL: requestURL, Code: status}
	}
}

// responseBody 复制正文（resp 会被回收），gzip 编码时先解压。
func responseBody(resp *fasthttp.Response) ([]byte, error) {
	if bytes.EqualFold(resp.Header.ContentEncoding(), []byte("gzip")) {
		body, err := resp.BodyGunzip()
		if err != nil {
			return nil, err
		}
		return bytes.Clone(body), nil
	}
	return bytes.Clone(resp.Body()), nil
}
