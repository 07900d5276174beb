package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"emperror.dev/errors"
	"github.com/spf13/cobra"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
)

// requestFlags 描述一个请求的命令行参数
type requestFlags struct {
	opts    string
	method  string
	headers []string
	data    string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.opts, "opts", "", `options object as JSON, e.g. '{"query":{"a":1},"timeout":500}'`)
	cmd.Flags().StringVarP(&f.method, "request", "X", "", "request method")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `request header "Name: value", repeatable`)
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body")
}

// build 解析参数，-X、-H、-d 覆盖 --opts 里的同名字段
func (f *requestFlags) build(url string) (*httpc.Request, error) {
	var raw map[string]any
	if f.opts != "" {
		if err := json.Unmarshal([]byte(f.opts), &raw); err != nil {
			return nil, errors.Wrap(err, "--opts is not a JSON object")
		}
	}

	opts, err := httpc.ParseOptions(raw)
	if err != nil {
		return nil, err
	}

	req := httpc.New(url).WithOptions(opts)
	if f.data != "" {
		req.WithBody([]byte(f.data))
	}
	if f.method != "" {
		req.WithMethod(f.method)
	}
	for _, h := range f.headers {
		key, value, err := parseHeader(h)
		if err != nil {
			return nil, err
		}
		req.WithHeader(key, value)
	}
	return req, nil
}

func parseHeader(h string) (string, string, error) {
	key, value, ok := strings.Cut(h, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", errors.Errorf("invalid header %q, want \"Name: value\"", h)
	}
	return http.CanonicalHeaderKey(key), strings.TrimSpace(value), nil
}
