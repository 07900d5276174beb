package download

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/go-resty/resty/v2"
	"github.com/thoas/go-funk"
	"golang.org/x/net/http2"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
)

// Transport 按协议打开客户端
type Transport interface {
	Open(protocol string, opts *httpc.TransportOptions) (Client, error)
}

// Client 发出一次请求，返回原始响应
type Client interface {
	Request(ctx context.Context, d *httpc.Descriptor) (*http.Response, error)
}

var supportedProtocols = []string{"http:", "https:"}

// ErrUnsupportedProtocol 协议不是 http: 或 https:
var ErrUnsupportedProtocol = errors.Sentinel("unsupported protocol")

// RestyLogger resty 需要的日志接口，*logger.Logger 满足它
type RestyLogger = resty.Logger

// RestyTransport 基于 resty 的传输层。相同协议和选项的客户端会被复用。
type RestyTransport struct {
	logger  RestyLogger
	clients sync.Map // key -> *restyClient
}

func NewRestyTransport(logger RestyLogger) *RestyTransport {
	return &RestyTransport{logger: logger}
}

func (t *RestyTransport) Open(protocol string, opts *httpc.TransportOptions) (Client, error) {
	if !funk.ContainsString(supportedProtocols, protocol) {
		return nil, errors.WithDetails(ErrUnsupportedProtocol, "protocol", protocol)
	}
	if opts == nil {
		opts = &httpc.TransportOptions{MaxRedirects: httpc.DefaultMaxRedirects}
	}

	key := clientKey(protocol, opts)
	if c, ok := t.clients.Load(key); ok {
		return c.(*restyClient), nil
	}

	c, err := t.newClient(protocol, opts)
	if err != nil {
		return nil, err
	}
	actual, _ := t.clients.LoadOrStore(key, c)
	return actual.(*restyClient), nil
}

func clientKey(protocol string, opts *httpc.TransportOptions) string {
	return fmt.Sprintf("%s|%d|%d|%t|%d", protocol, opts.Timeout, opts.SocketTimeout, opts.FollowRedirects, opts.MaxRedirects)
}

func (t *RestyTransport) newClient(protocol string, opts *httpc.TransportOptions) (*restyClient, error) {
	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.SocketTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
		// accept-encoding 由调用方设置，解压在 decodeBody 里做
		DisableCompression: true,
	}
	if protocol == "https:" {
		tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		if err := http2.ConfigureTransport(tr); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	client := resty.New().
		SetTransport(tr).
		SetDoNotParseResponse(true)
	if t.logger != nil {
		client.SetLogger(t.logger)
	}

	if opts.FollowRedirects {
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(opts.MaxRedirects))
	} else {
		client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	}

	return &restyClient{client: client}, nil
}

type restyClient struct {
	client *resty.Client
}

func (c *restyClient) Request(ctx context.Context, d *httpc.Descriptor) (*http.Response, error) {
	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if d.Options != nil {
		req.SetHeaders(d.Options.Headers)
		if d.Options.HasBody() {
			req.SetBody(d.Options.Body)
		}
	}

	resp, err := req.Execute(d.Method(), d.RequestURL)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return nil, err
	}

	raw := resp.RawResponse
	if err := decodeBody(raw); err != nil {
		raw.Body.Close()
		return nil, err
	}
	return raw, nil
}
