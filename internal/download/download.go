package download

import (
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"

	"github.com/djskncxm/DuckRequest/internal/metrics"
	"github.com/djskncxm/DuckRequest/pkg/httpc"
	"github.com/djskncxm/DuckRequest/pkg/logger"
	"github.com/djskncxm/DuckRequest/pkg/middleware"
)

// ErrIncompleteDescriptor Descriptor 为 nil 或缺少 RequestOptions
var ErrIncompleteDescriptor = errors.Sentinel("incomplete request descriptor")

// Result Go 方法的结果，Response 和 Err 恰好有一个非空
type Result struct {
	Response *http.Response
	Err      error
}

// Download 把 Descriptor 交给传输层执行
type Download struct {
	transport  Transport
	middleware *middleware.MiddlewareManager
	metrics    metrics.Client
	logger     *logger.Logger
}

type Option func(*Download)

func WithMiddleware(mm *middleware.MiddlewareManager) Option {
	return func(d *Download) { d.middleware = mm }
}

func WithMetrics(m metrics.Client) Option {
	return func(d *Download) { d.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(d *Download) { d.logger = l }
}

// InitDownload transport 为 nil 时使用 RestyTransport
func InitDownload(transport Transport, opts ...Option) *Download {
	d := &Download{transport: transport}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = logger.NewNop()
	}
	if d.middleware == nil {
		d.middleware = middleware.NewMiddlewareManager()
	}
	if d.transport == nil {
		d.transport = NewRestyTransport(d.logger)
	}
	return d
}

// Fetch 执行请求并调用一次回调，返回值与回调参数相同。
// 不重试，不读取响应体，调用方负责关闭 Body。
func (d *Download) Fetch(ctx context.Context, desc *httpc.Descriptor) (*http.Response, error) {
	res, err := d.fetch(ctx, desc)
	desc.Done(res, err)
	return res, err
}

// Go 在新的 goroutine 里执行 Fetch，回调之后发送结果并关闭通道
func (d *Download) Go(ctx context.Context, desc *httpc.Descriptor) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		res, err := d.Fetch(ctx, desc)
		ch <- Result{Response: res, Err: err}
	}()
	return ch
}

func (d *Download) fetch(ctx context.Context, desc *httpc.Descriptor) (*http.Response, error) {
	if desc == nil || desc.RequestOptions == nil {
		return nil, ErrIncompleteDescriptor
	}

	if err := d.middleware.ProcessRequest(desc); err != nil {
		return nil, err
	}

	method := desc.Method()
	host := desc.RequestOptions.Host
	log := d.logger.WithFields(map[string]any{"method": method, "url": desc.RequestURL})

	client, err := d.transport.Open(desc.RequestOptions.Protocol, desc.Options)
	if err != nil {
		return nil, d.fail(desc, method, host, err)
	}

	start := time.Now()
	res, err := client.Request(ctx, desc)
	if err != nil {
		log.WithError(err).Debug("传输层失败")
		return nil, d.fail(desc, method, host, err)
	}

	if d.metrics != nil {
		d.metrics.ObserveRequest(method, host, res.StatusCode, time.Since(start))
	}
	log.WithField("status", res.StatusCode).Debug("收到响应")

	if err := d.middleware.ProcessResponse(desc, res); err != nil {
		res.Body.Close()
		return nil, err
	}
	return res, nil
}

func (d *Download) fail(desc *httpc.Descriptor, method, host string, err error) error {
	if d.metrics != nil {
		d.metrics.IncTransportErrors(method, host)
	}

	err = d.middleware.ProcessException(desc, err)

	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Method: method, URL: desc.RequestURL, Err: err}
}
