package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"emperror.dev/errors"
	"github.com/thoas/go-funk"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
	"github.com/djskncxm/DuckRequest/pkg/logger"
)

// HeaderMiddleware 补充请求头，已有的键不覆盖
type HeaderMiddleware struct {
	Headers map[string]string
}

func (m *HeaderMiddleware) ProcessRequest(d *httpc.Descriptor) error {
	if d.Options == nil {
		return nil
	}
	if d.Options.Headers == nil {
		d.Options.Headers = make(map[string]string, len(m.Headers))
	}
	for key, val := range m.Headers {
		key = strings.ToLower(key)
		if _, exists := d.Options.Headers[key]; !exists {
			d.Options.Headers[key] = val
		}
	}
	return nil
}

// ErrMethodNotAllowed 请求方法不在允许列表里
var ErrMethodNotAllowed = errors.Sentinel("method not allowed")

// MethodFilter 只放行列出的请求方法
type MethodFilter struct {
	Allowed []string
}

func (m *MethodFilter) ProcessRequest(d *httpc.Descriptor) error {
	if len(m.Allowed) == 0 {
		return nil
	}
	method := d.Method()
	if !funk.ContainsString(m.Allowed, method) {
		return errors.WithDetails(ErrMethodNotAllowed, "method", method)
	}
	return nil
}

// StatsMiddleware 把请求、响应、失败计数写进 logger.Stats
type StatsMiddleware struct {
	Stats *logger.Stats
}

func (m *StatsMiddleware) ProcessRequest(*httpc.Descriptor) error {
	m.Stats.Increment("requests")
	return nil
}

func (m *StatsMiddleware) ProcessResponse(_ *httpc.Descriptor, res *http.Response) error {
	m.Stats.Increment("responses")
	m.Stats.Increment("status_" + strconv.Itoa(res.StatusCode))
	return nil
}

func (m *StatsMiddleware) ProcessException(*httpc.Descriptor, error) (bool, error) {
	m.Stats.Increment("failures")
	return false, nil
}

// LoggingMiddleware 记录每次请求的方法、地址和状态
type LoggingMiddleware struct {
	Logger *logger.Logger
}

func (m *LoggingMiddleware) ProcessRequest(d *httpc.Descriptor) error {
	m.Logger.WithFields(map[string]any{
		"method": d.Method(),
		"url":    d.RequestURL,
	}).Debug("发送请求")
	return nil
}

func (m *LoggingMiddleware) ProcessResponse(d *httpc.Descriptor, res *http.Response) error {
	m.Logger.WithFields(map[string]any{
		"method": d.Method(),
		"url":    d.RequestURL,
		"status": res.StatusCode,
	}).Info("收到响应")
	return nil
}

func (m *LoggingMiddleware) ProcessException(d *httpc.Descriptor, err error) (bool, error) {
	m.Logger.WithFields(map[string]any{
		"method": d.Method(),
		"url":    d.RequestURL,
	}).WithError(err).Warn("请求失败")
	return false, nil
}
