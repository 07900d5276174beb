package core

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"golang.org/x/time/rate"

	"github.com/djskncxm/DuckRequest/internal/download"
	"github.com/djskncxm/DuckRequest/internal/metrics"
	"github.com/djskncxm/DuckRequest/internal/setting"
	"github.com/djskncxm/DuckRequest/pkg/httpc"
	"github.com/djskncxm/DuckRequest/pkg/logger"
	"github.com/djskncxm/DuckRequest/pkg/middleware"
)

// 队列为空但仍有请求在执行时，工作协程的轮询间隔
const idleInterval = 10 * time.Millisecond

// Engine 规范化请求、排队，并用固定数量的工作协程发送
type Engine struct {
	Setting    *setting.Setting
	Config     *setting.SettingsManager
	Logger     *logger.Logger
	Middleware *middleware.MiddlewareManager

	normalizer *httpc.Normalizer
	download   *download.Download
	scheduler  *Scheduler
	limiter    *rate.Limiter
	metrics    metrics.Client
	transport  download.Transport

	// 已入队但还没执行完的数量
	pending atomic.Int64
	mu      sync.Mutex
	running bool
}

type EngineOption func(*Engine)

// WithTransport 替换默认的 resty 传输层
func WithTransport(t download.Transport) EngineOption {
	return func(e *Engine) { e.transport = t }
}

func WithMetrics(m metrics.Client) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// InitEngine s 为 nil 时使用 setting.Default()
func InitEngine(s *setting.Setting, log *logger.Logger, opts ...EngineOption) (*Engine, error) {
	if s == nil {
		s = setting.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if log.Stats == nil {
		log.Stats = logger.NewStats()
	}

	config := setting.NewSettingsManager()
	config.LoadFromSetting(s)

	e := &Engine{
		Setting:    s,
		Config:     config,
		Logger:     log,
		Middleware: middleware.NewMiddlewareManager(),
		normalizer: httpc.NewNormalizer(s.Headers.UserAgent, s.Client.MaxRedirects),
		scheduler:  NewScheduler(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if s.Client.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(s.Client.RateLimit), s.Client.Burst)
	}

	if err := e.registerMiddleware(); err != nil {
		return nil, err
	}

	dopts := []download.Option{
		download.WithMiddleware(e.Middleware),
		download.WithLogger(log),
	}
	if e.metrics != nil {
		dopts = append(dopts, download.WithMetrics(e.metrics))
	}
	e.download = download.InitDownload(e.transport, dopts...)

	return e, nil
}

type builtinMiddleware struct {
	mw  any
	cfg middleware.MiddlewareConfig
}

func (e *Engine) registerMiddleware() error {
	s := e.Setting
	builtin := []builtinMiddleware{
		{&middleware.StatsMiddleware{Stats: e.Logger.Stats}, middleware.MiddlewareConfig{Name: "stats", Priority: middleware.PriorityFirst, Group: "builtin"}},
		{&middleware.LoggingMiddleware{Logger: e.Logger}, middleware.MiddlewareConfig{Name: "logging", Priority: middleware.PriorityLast, Group: "builtin"}},
	}
	if len(s.Headers.Extra) > 0 {
		builtin = append(builtin, builtinMiddleware{
			&middleware.HeaderMiddleware{Headers: s.Headers.Extra},
			middleware.MiddlewareConfig{Name: "headers", Priority: middleware.PriorityHigh, Group: "builtin"},
		})
	}
	if len(s.Client.AllowedMethods) > 0 {
		builtin = append(builtin, builtinMiddleware{
			&middleware.MethodFilter{Allowed: s.Client.AllowedMethods},
			middleware.MiddlewareConfig{Name: "methods", Priority: middleware.PriorityHigh, Group: "builtin"},
		})
	}

	for _, b := range builtin {
		if err := e.Middleware.Register(b.mw, b.cfg); err != nil {
			return err
		}
	}
	return nil
}

// Prepare 用配置里的默认值补全选项并规范化，不入队
func (e *Engine) Prepare(req *httpc.Request) (*httpc.Descriptor, error) {
	return e.normalizer.Normalize(e.withDefaults(req))
}

// Submit 规范化后入队。
// 规范化失败的请求不会入队，也不会调用回调。
func (e *Engine) Submit(req *httpc.Request) (*httpc.Descriptor, error) {
	d, err := e.Prepare(req)
	if err != nil {
		e.Logger.Stats.Increment("rejected")
		if e.metrics != nil {
			e.metrics.IncNormalizeErrors(rejectReason(err))
		}
		e.Logger.WithError(err).Warn("请求被拒绝")
		return nil, err
	}

	e.pending.Add(1)
	e.scheduler.EnqueueRequest(d)
	e.Logger.Stats.Increment("submitted")
	e.reportQueue()
	return d, nil
}

func (e *Engine) withDefaults(req *httpc.Request) *httpc.Request {
	if req == nil {
		return nil
	}
	c := e.Setting.Client
	out := *req
	opts := req.Options.Clone()
	if opts.Timeout == 0 {
		opts.Timeout = c.TimeoutDuration()
	}
	if opts.SocketTimeout == 0 {
		opts.SocketTimeout = c.SocketTimeoutDuration()
	}
	if !opts.FollowRedirects {
		opts.FollowRedirects = c.FollowRedirects
	}
	out.Options = opts
	return &out
}

func rejectReason(err error) string {
	var (
		urlType  *httpc.InvalidURLTypeError
		optType  *httpc.InvalidOptionTypeError
		bodyType *httpc.InvalidBodyTypeError
		badURL   *httpc.InvalidURLError
	)
	switch {
	case errors.As(err, &urlType):
		return "invalid_url_type"
	case errors.As(err, &optType):
		return "invalid_option"
	case errors.As(err, &bodyType):
		return "invalid_body"
	case errors.As(err, &badURL):
		return "invalid_url"
	default:
		return "other"
	}
}

// Pending 已入队但还没执行完的请求数
func (e *Engine) Pending() int {
	return int(e.pending.Load())
}

// Run 启动 Client.Worker 个工作协程，队列清空且没有执行中的请求时返回。
// ctx 取消后剩下的请求以 ctx.Err() 调用回调，Run 返回 ctx.Err()。
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	concurrency := e.Config.GetInt("Client.Worker", 3)
	e.Logger.WithField("worker", concurrency).Debug("引擎启动")

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		e.drain(err)
		return err
	}
	e.Logger.Debug("引擎关闭")
	return nil
}

func (e *Engine) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		d := e.scheduler.NextRequest()
		if d == nil {
			if e.isAllWorkDone() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(idleInterval):
			}
			continue
		}
		e.reportQueue()
		e.process(ctx, d)
	}
}

func (e *Engine) process(ctx context.Context, d *httpc.Descriptor) {
	defer e.pending.Add(-1)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			d.Done(nil, err)
			return
		}
	}

	res, err := e.download.Fetch(ctx, d)
	if err == nil && d.Callback == nil {
		// 没有回调时由引擎关闭响应体
		closeBody(res)
	}
}

func (e *Engine) drain(err error) {
	for d := e.scheduler.NextRequest(); d != nil; d = e.scheduler.NextRequest() {
		d.Done(nil, err)
		e.pending.Add(-1)
	}
	e.reportQueue()
}

func (e *Engine) isAllWorkDone() bool {
	return e.pending.Load() == 0
}

func (e *Engine) reportQueue() {
	if e.metrics != nil {
		e.metrics.SetQueueSize(e.scheduler.Size())
	}
}

func closeBody(res *http.Response) {
	if res != nil && res.Body != nil {
		res.Body.Close()
	}
}
