package httpc

import (
	"fmt"

	"github.com/djskncxm/DuckRequest/pkg/kind"
)

// InvalidURLTypeError url 参数不是字符串
type InvalidURLTypeError struct {
	Got kind.Kind
}

func (e *InvalidURLTypeError) Error() string {
	return "url should be string"
}

// InvalidOptionTypeError 某个选项的类型与 schema 不符
type InvalidOptionTypeError struct {
	Field    string
	Expected string
}

func (e *InvalidOptionTypeError) Error() string {
	if e.Field == "opts" {
		return "opts should be " + e.Expected
	}
	return "opts." + e.Field + " should be " + e.Expected
}

// InvalidBodyTypeError opts.body 既不是字符串也不是字节
type InvalidBodyTypeError struct {
	Got kind.Kind
}

func (e *InvalidBodyTypeError) Error() string {
	return "opts.body should be buffer or string"
}

// InvalidURLError 补全协议后仍然无法解析的 URL
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error {
	return e.Err
}
