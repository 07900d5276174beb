package httpc

import (
	"net/http"
	"strings"

	"github.com/djskncxm/DuckRequest/pkg/urlcodec"
)

const (
	DefaultUserAgent      = "https://github.com/djskncxm/DuckRequest"
	DefaultAcceptEncoding = "gzip,deflate"
	DefaultMaxRedirects   = 10
)

// DefaultHeaders 返回默认请求头的新副本，userAgent 为空时用 DefaultUserAgent
func DefaultHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return map[string]string{
		"user-agent":      userAgent,
		"accept-encoding": DefaultAcceptEncoding,
	}
}

// Descriptor 规范化之后交给传输层的请求描述
type Descriptor struct {
	URL            string            `json:"url"`
	Options        *TransportOptions `json:"opts"`
	RequestURL     string            `json:"requestUrl"`
	RequestOptions *RequestOptions   `json:"requestOptions"`
	Callback       Callback          `json:"-"`
	Meta           map[string]any    `json:"-"`
}

// Method 实际使用的请求方法，未设置时为 GET
func (d *Descriptor) Method() string {
	if d == nil || d.RequestOptions == nil || d.RequestOptions.Method == "" {
		return http.MethodGet
	}
	return d.RequestOptions.Method
}

// Done 调用回调（如果有），d 为 nil 时什么也不做
func (d *Descriptor) Done(res *http.Response, err error) {
	if d != nil && d.Callback != nil {
		d.Callback(res, err)
	}
}

// Normalizer 构造 Descriptor。零值可用。
type Normalizer struct {
	// UserAgent 默认的 user-agent 请求头
	UserAgent string
	// MaxRedirects opts 未设置时的重定向上限
	MaxRedirects int
}

func NewNormalizer(userAgent string, maxRedirects int) *Normalizer {
	return &Normalizer{UserAgent: userAgent, MaxRedirects: maxRedirects}
}

// Normalize 填充默认值、合并 URL 并生成 Descriptor。不会修改 req。
func (n *Normalizer) Normalize(req *Request) (*Descriptor, error) {
	if req == nil {
		return nil, &InvalidURLTypeError{}
	}

	opts := req.Options.Clone()
	url := urlcodec.PrependHTTP(req.URL)

	method := opts.Method
	if len(opts.Body) > 0 && method == "" {
		method = http.MethodPost
	}
	opts.Method = strings.ToUpper(method)

	ro, err := ResolveURL(url, opts)
	if err != nil {
		return nil, err
	}
	ro.Method = opts.Method

	maxRedirects := opts.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = n.maxRedirects()
	}

	headers := DefaultHeaders(n.UserAgent)
	for key, val := range opts.Headers {
		headers[strings.ToLower(key)] = val
	}

	to := &TransportOptions{
		Timeout:         opts.Timeout,
		SocketTimeout:   opts.SocketTimeout,
		MaxRedirects:    maxRedirects,
		FollowRedirects: opts.FollowRedirects,
		Headers:         headers,
		Body:            opts.Body,
		Extra:           residual(opts.Extra),
	}

	return &Descriptor{
		URL:            url,
		Options:        to,
		RequestURL:     ro.Href,
		RequestOptions: ro,
		Callback:       req.Callback,
		Meta:           req.Meta,
	}, nil
}

func (n *Normalizer) maxRedirects() int {
	if n.MaxRedirects > 0 {
		return n.MaxRedirects
	}
	return DefaultMaxRedirects
}

func residual(extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return nil
	}
	res := make(map[string]any, len(extra))
	for key, val := range extra {
		if requestOptionKeys[key] {
			continue
		}
		res[key] = val
	}
	return res
}

// Normalize 用默认 Normalizer 处理 url、可选的 opts 和可选的回调
func Normalize(url string, opts *Options, cb Callback) (*Descriptor, error) {
	req := &Request{URL: url, Options: opts, Callback: cb}
	return (&Normalizer{}).Normalize(req)
}

// NormalizeArgs 接受 (url[, opts][, callback]) 形式的松散参数
func NormalizeArgs(args ...any) (*Descriptor, error) {
	req, err := ResolveArguments(args...)
	if err != nil {
		return nil, err
	}
	return (&Normalizer{}).Normalize(req)
}
