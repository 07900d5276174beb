package httpc

import (
	"github.com/djskncxm/DuckRequest/pkg/kind"
)

// Field 选项名和它接受的类型缩写
type Field struct {
	Name string
	Code string
}

// Schema 按顺序校验，报告第一个不匹配的字段
var Schema = []Field{
	{Name: "query", Code: "so"},
	{Name: "path", Code: "s"},
	{Name: "pathname", Code: "s"},
	{Name: "host", Code: "s"},
	{Name: "hostname", Code: "s"},
	{Name: "timeout", Code: "n"},
	{Name: "socketTimeout", Code: "n"},
	{Name: "maxRedirects", Code: "n"},
	{Name: "followRedirects", Code: "b"},
	{Name: "method", Code: "s"},
	{Name: "headers", Code: "o"},
	{Name: "port", Code: "sn"},
}

var schemaIndex = func() map[string]int {
	idx := make(map[string]int, len(Schema))
	for i, f := range Schema {
		// 缩写码写错直接在初始化时暴露
		kind.MustExpand(f.Code)
		idx[f.Name] = i
	}
	return idx
}()

func codeOf(field string) string {
	return Schema[schemaIndex[field]].Code
}

// ValidateOptions 检查已识别的选项类型，未识别的键不校验
func ValidateOptions(raw map[string]any) error {
	for _, f := range Schema {
		val, ok := raw[f.Name]
		if !ok {
			continue
		}
		if !kind.Match(val, f.Code) {
			return &InvalidOptionTypeError{Field: f.Name, Expected: kind.Describe(f.Code)}
		}
	}
	return nil
}
