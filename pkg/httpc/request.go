package httpc

import (
	"net/http"

	"github.com/djskncxm/DuckRequest/pkg/kind"
)

// Callback 请求完成回调，成功时 err 为 nil，失败时 res 为 nil
type Callback func(res *http.Response, err error)

// Request 一次调用的原始输入
type Request struct {
	URL      string
	Options  *Options
	Callback Callback
	Meta     map[string]any
}

func New(url string) *Request {
	return &Request{
		URL:     url,
		Options: &Options{},
		Meta:    make(map[string]any),
	}
}

func (r *Request) WithOptions(opts *Options) *Request {
	r.Options = opts.Clone()
	return r
}

func (r *Request) WithMethod(method string) *Request {
	r.options().Method = method
	return r
}

func (r *Request) WithHeader(key, value string) *Request {
	opts := r.options()
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}
	opts.Headers[key] = value
	return r
}

func (r *Request) WithQuery(query Query) *Request {
	r.options().Query = query
	return r
}

func (r *Request) WithBody(body []byte) *Request {
	r.options().Body = body
	return r
}

func (r *Request) WithMeta(key string, value any) *Request {
	if r.Meta == nil {
		r.Meta = make(map[string]any)
	}
	r.Meta[key] = value
	return r
}

func (r *Request) WithCallback(cb Callback) *Request {
	r.Callback = cb
	return r
}

func (r *Request) options() *Options {
	if r.Options == nil {
		r.Options = &Options{}
	}
	return r.Options
}

// ResolveArguments 把 (url[, opts][, callback]) 形式的参数整理成 Request。
// 最后一个参数是函数时作为回调；opts 可以是 *Options、Options、
// map[string]any 或 map[string]string，省略时为空选项。
func ResolveArguments(args ...any) (*Request, error) {
	if len(args) == 0 {
		return nil, &InvalidURLTypeError{Got: kind.Null}
	}

	url, ok := args[0].(string)
	if !ok {
		return nil, &InvalidURLTypeError{Got: kind.Of(args[0])}
	}
	req := New(url)

	rest := args[1:]
	if n := len(rest); n > 0 {
		if cb, ok := asCallback(rest[n-1]); ok {
			req.Callback = cb
			rest = rest[:n-1]
		}
	}
	if len(rest) == 0 {
		return req, nil
	}

	switch opts := rest[0].(type) {
	case nil:
	case *Options:
		req.Options = opts.Clone()
	case Options:
		req.Options = opts.Clone()
	case map[string]any:
		parsed, err := ParseOptions(opts)
		if err != nil {
			return nil, err
		}
		req.Options = parsed
	case map[string]string:
		raw := make(map[string]any, len(opts))
		for k, v := range opts {
			raw[k] = v
		}
		parsed, err := ParseOptions(raw)
		if err != nil {
			return nil, err
		}
		req.Options = parsed
	default:
		return nil, &InvalidOptionTypeError{Field: "opts", Expected: string(kind.Object)}
	}

	return req, nil
}

func asCallback(v any) (Callback, bool) {
	switch cb := v.(type) {
	case Callback:
		return cb, true
	case func(*http.Response, error):
		return cb, true
	}
	return nil, false
}
