package httpc

import (
	"strings"

	"emperror.dev/errors"
	"github.com/google/go-querystring/query"

	"github.com/djskncxm/DuckRequest/pkg/kind"
	"github.com/djskncxm/DuckRequest/pkg/qs"
	"github.com/djskncxm/DuckRequest/pkg/urlcodec"
)

// RequestOptions 合并之后的 URL 各部分加上请求方法
type RequestOptions struct {
	Protocol string `json:"protocol"`
	Slashes  bool   `json:"slashes"`
	Auth     string `json:"auth,omitempty"`
	Host     string `json:"host"`
	Port     string `json:"port,omitempty"` // 空串表示没有端口
	Hostname string `json:"hostname"`
	Hash     string `json:"hash,omitempty"`
	Search   string `json:"search"`
	Query    string `json:"query"`
	Pathname string `json:"pathname"`
	Path     string `json:"path"`
	Href     string `json:"href"`
	Method   string `json:"method,omitempty"`
}

// 这些键被 RequestOptions 吸收，不会再出现在传输层选项里
var requestOptionKeys = map[string]bool{
	"protocol": true,
	"slashes":  true,
	"auth":     true,
	"host":     true,
	"port":     true,
	"hostname": true,
	"hash":     true,
	"search":   true,
	"query":    true,
	"pathname": true,
	"path":     true,
	"href":     true,
	"method":   true,
}

// ResolveURL 解析 rawURL 并按 opts 覆盖各部分。
//
// 优先级：opts.Host 里的端口 > opts.Port > URL 自带端口；
// opts.Path > opts.Pathname > URL 自带路径；
// opts.Path 里 "?" 之后的查询串拼在 opts.Query（或 URL 查询串）前面。
func ResolveURL(rawURL string, opts *Options) (*RequestOptions, error) {
	if opts == nil {
		opts = &Options{}
	}

	u, err := urlcodec.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}

	cfg, err := qs.ConfigFromOptions(opts.Extra)
	if err != nil {
		return nil, err
	}

	query, err := resolveQuery(opts.Query, cfg)
	if err != nil {
		return nil, err
	}
	if query == "" {
		query = u.Query
	}

	pathname := u.Pathname
	switch {
	case opts.Path != "":
		pathname = opts.Path
	case opts.Pathname != "":
		pathname = opts.Pathname
	}

	port := u.Port
	if opts.Port != "" {
		port = opts.Port
	}

	if before, after, found := strings.Cut(opts.Path, "?"); found {
		pathname = before
		query = joinQuery(after, query)
	}
	if pathname != u.Pathname {
		pathname = urlcodec.EscapePath(pathname)
	}
	if pathname == "" && u.Slashes {
		pathname = "/"
	}

	hostname := u.Hostname
	if opts.Hostname != "" {
		hostname = urlcodec.NormalizeHostname(opts.Hostname)
	}
	if opts.Host != "" {
		h, p, _ := urlcodec.SplitHostPort(opts.Host)
		hostname = urlcodec.NormalizeHostname(h)
		if p != "" {
			port = p
		}
	}

	ro := &RequestOptions{
		Protocol: u.Protocol,
		Slashes:  u.Slashes,
		Auth:     u.Auth,
		Hostname: hostname,
		Port:     port,
		Host:     urlcodec.JoinHostPort(hostname, port),
		Hash:     u.Hash,
		Query:    query,
		Search:   "?" + query,
		Pathname: pathname,
	}
	ro.Path = ro.Pathname + ro.Search
	ro.Href = urlcodec.Format(&urlcodec.URL{
		Protocol: ro.Protocol,
		Slashes:  ro.Slashes,
		Auth:     ro.Auth,
		Host:     ro.Host,
		Hash:     ro.Hash,
		Search:   ro.Search,
		Pathname: ro.Pathname,
	})

	return ro, nil
}

func resolveQuery(q Query, cfg qs.Config) (string, error) {
	switch v := q.(type) {
	case QueryString:
		if v == "" {
			return "", nil
		}
		parsed, err := qs.Parse(string(v), cfg)
		if err != nil {
			return "", errors.Wrap(err, "parse query")
		}
		return qs.Stringify(parsed, cfg)
	case QueryParams:
		return qs.Stringify(map[string]any(v), cfg)
	case OrderedQuery:
		return qs.Stringify(v.Map, cfg)
	case QueryStruct:
		values, err := query.Values(v.Value)
		if err != nil {
			return "", &InvalidOptionTypeError{Field: "query", Expected: kind.Describe(codeOf("query"))}
		}
		return values.Encode(), nil
	}
	return "", nil
}

// joinQuery 用 "&" 拼接，任意一边为空时不加分隔符
func joinQuery(first, second string) string {
	switch {
	case first == "":
		return second
	case second == "":
		return first
	}
	return first + "&" + second
}
