package httpc

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/mitchellh/mapstructure"

	"github.com/djskncxm/DuckRequest/pkg/kind"
)

// Query 查询参数，QueryString、QueryParams、OrderedQuery 或 QueryStruct 之一
type Query interface {
	isQuery()
}

// QueryString 原始查询字符串，会按编解码配置重新规范化
type QueryString string

// QueryParams 查询参数对象，序列化时按键排序
type QueryParams map[string]any

// OrderedQuery 保持插入顺序的查询参数对象
type OrderedQuery struct {
	*linkedhashmap.Map
}

// QueryStruct 带 `url` 标签的结构体，按 go-querystring 的规则编码：
// 切片展开成重复的键，键按字母排序，查询串编解码配置不生效
type QueryStruct struct {
	Value any
}

func (QueryString) isQuery()  {}
func (QueryParams) isQuery()  {}
func (OrderedQuery) isQuery() {}
func (QueryStruct) isQuery()  {}

// Options 请求选项
type Options struct {
	Query    Query
	Path     string // 可以带 "?a=b"
	Pathname string
	Host     string // 可以带端口
	Hostname string
	Port     string

	Timeout         time.Duration
	SocketTimeout   time.Duration
	MaxRedirects    int
	FollowRedirects bool

	Method  string
	Body    []byte
	Headers map[string]string

	// 未识别的键原样透传，查询字符串编解码配置也从这里读取
	Extra map[string]any
}

// Clone 浅拷贝，map 会复制一份
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	c := *o
	if o.Headers != nil {
		c.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			c.Headers[k] = v
		}
	}
	if o.Extra != nil {
		c.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// TransportOptions 去掉 URL 各部分和 method 之后剩下的选项，交给传输层
type TransportOptions struct {
	Timeout         time.Duration     `json:"timeout"`
	SocketTimeout   time.Duration     `json:"socketTimeout"`
	MaxRedirects    int               `json:"maxRedirects"`
	FollowRedirects bool              `json:"followRedirects"`
	Headers         map[string]string `json:"headers"`
	Body            []byte            `json:"-"`
	Extra           map[string]any    `json:"extra,omitempty"`
}

// HasBody 是否需要写请求体
func (o *TransportOptions) HasBody() bool {
	return o != nil && len(o.Body) > 0
}

// rawOptions 选项袋中可以直接解码的部分
type rawOptions struct {
	Path            string         `mapstructure:"path"`
	Pathname        string         `mapstructure:"pathname"`
	Host            string         `mapstructure:"host"`
	Hostname        string         `mapstructure:"hostname"`
	Method          string         `mapstructure:"method"`
	Timeout         float64        `mapstructure:"timeout"`
	SocketTimeout   float64        `mapstructure:"socketTimeout"`
	MaxRedirects    float64        `mapstructure:"maxRedirects"`
	FollowRedirects bool           `mapstructure:"followRedirects"`
	Extra           map[string]any `mapstructure:",remain"`
}

// ParseOptions 校验松散的选项袋并转换成 Options。
// 数值型的超时按毫秒计；空值视为未设置。
func ParseOptions(raw map[string]any) (*Options, error) {
	if err := ValidateOptions(raw); err != nil {
		return nil, err
	}

	opts := &Options{}
	if len(raw) == 0 {
		return opts, nil
	}

	rest := make(map[string]any, len(raw))
	for key, val := range raw {
		switch key {
		case "query", "body", "headers", "port":
			continue
		}
		if _, known := schemaIndex[key]; known && kind.Falsy(val) {
			continue
		}
		rest[key] = val
	}

	var r rawOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:    &r,
		MatchName: exactName,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := decoder.Decode(rest); err != nil {
		return nil, errors.Wrap(err, "decode options")
	}

	opts.Path = r.Path
	opts.Pathname = r.Pathname
	opts.Host = r.Host
	opts.Hostname = r.Hostname
	opts.Method = r.Method
	opts.Timeout = millis(r.Timeout)
	opts.SocketTimeout = millis(r.SocketTimeout)
	opts.MaxRedirects = int(r.MaxRedirects)
	opts.FollowRedirects = r.FollowRedirects
	opts.Extra = r.Extra

	if opts.Query, err = toQuery(raw["query"]); err != nil {
		return nil, err
	}
	if opts.Headers, err = toHeaders(raw["headers"]); err != nil {
		return nil, err
	}
	if opts.Body, err = toBody(raw["body"]); err != nil {
		return nil, err
	}
	if port := raw["port"]; !kind.Falsy(port) {
		opts.Port = fmt.Sprint(port)
	}

	return opts, nil
}

// exactName 键名大小写必须一致，"PATH" 之类的键留在 Extra 里
func exactName(mapKey, fieldName string) bool {
	return mapKey == fieldName
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func toQuery(v any) (Query, error) {
	if kind.Falsy(v) {
		return nil, nil
	}

	switch q := v.(type) {
	case Query:
		return q, nil
	case string:
		return QueryString(q), nil
	case *linkedhashmap.Map:
		return OrderedQuery{Map: q}, nil
	case map[string]any:
		return QueryParams(q), nil
	}

	if kind.Of(v) == kind.String {
		return QueryString(reflect.ValueOf(v).String()), nil
	}

	if isStruct(v) {
		return QueryStruct{Value: v}, nil
	}

	// map[string]string 等先转成通用 map
	params := map[string]any{}
	if err := mapstructure.Decode(v, &params); err != nil {
		return nil, &InvalidOptionTypeError{Field: "query", Expected: kind.Describe(codeOf("query"))}
	}
	return QueryParams(params), nil
}

func isStruct(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

func toHeaders(v any) (map[string]string, error) {
	if kind.Falsy(v) {
		return nil, nil
	}

	switch h := v.(type) {
	case map[string]string:
		return h, nil
	case http.Header:
		res := make(map[string]string, len(h))
		for key, values := range h {
			res[key] = strings.Join(values, ", ")
		}
		return res, nil
	}

	generic := map[string]any{}
	if err := mapstructure.Decode(v, &generic); err != nil {
		return nil, &InvalidOptionTypeError{Field: "headers", Expected: kind.Describe(codeOf("headers"))}
	}
	res := make(map[string]string, len(generic))
	for key, val := range generic {
		if val == nil {
			continue
		}
		res[key] = fmt.Sprint(val)
	}
	return res, nil
}

func toBody(v any) ([]byte, error) {
	if kind.Falsy(v) {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.String:
		return []byte(rv.String()), nil
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return rv.Bytes(), nil
	}
	return nil, &InvalidBodyTypeError{Got: kind.Of(v)}
}
