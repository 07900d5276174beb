package kind

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Kind 值的运行时类别
type Kind string

const (
	Null     Kind = "null"
	String   Kind = "string"
	Number   Kind = "number"
	Boolean  Kind = "boolean"
	Object   Kind = "object"
	Array    Kind = "array"
	Buffer   Kind = "buffer"
	Function Kind = "function"
	Date     Kind = "date"
	Error    Kind = "error"
)

// 类型缩写表，一个字母对应一个类别
var abbreviations = map[rune]Kind{
	'a': Array,
	'b': Boolean,
	'd': Date,
	'e': Error,
	'f': Function,
	'n': Number,
	'o': Object,
	's': String,
	'B': Buffer,
}

// MaxKinds 一个缩写码最多展开成的类别数
const MaxKinds = 2

// Of 返回 v 的类别
func Of(v any) Kind {
	if v == nil {
		return Null
	}

	switch val := v.(type) {
	case string:
		return String
	case bool:
		return Boolean
	case json.Number:
		return Number
	case []byte:
		return Buffer
	case time.Time, *time.Time:
		return Date
	case error:
		return Error
	case *linkedhashmap.Map:
		if val == nil {
			return Null
		}
		return Object
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number
	case reflect.String:
		return String
	case reflect.Bool:
		return Boolean
	case reflect.Map, reflect.Struct:
		return Object
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Buffer
		}
		return Array
	case reflect.Func:
		if rv.IsNil() {
			return Null
		}
		return Function
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null
		}
		return Of(rv.Elem().Interface())
	}

	return Object
}

// Falsy 判断值是否为空（nil、""、0、false、空字节）
func Falsy(v any) bool {
	if v == nil {
		return true
	}

	switch val := v.(type) {
	case string:
		return val == ""
	case bool:
		return !val
	case []byte:
		// 空 buffer 视为未设置
		return len(val) == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return rv.IsNil()
	case reflect.Map, reflect.Slice:
		return rv.IsNil()
	}

	return false
}

// Expand 把缩写码展开成类别列表，例如 "so" -> [string object]
func Expand(code string) ([]Kind, error) {
	if code == "" {
		return nil, errors.New("empty type abbreviation")
	}

	kinds := make([]Kind, 0, len(code))
	for _, r := range code {
		k, ok := abbreviations[r]
		if !ok {
			return nil, errors.Errorf("unknown type abbreviation %q in %q", r, code)
		}
		kinds = append(kinds, k)
	}

	if len(kinds) > MaxKinds {
		return nil, errors.Errorf("type abbreviation %q expands to %d kinds, at most %d supported", code, len(kinds), MaxKinds)
	}

	return kinds, nil
}

// MustExpand 同 Expand，出错时 panic；只用于编译期固定的 schema
func MustExpand(code string) []Kind {
	kinds, err := Expand(code)
	if err != nil {
		panic(err)
	}
	return kinds
}

// Match 判断 v 是否符合缩写码。空值总是匹配，默认值由下游填充。
func Match(v any, code string) bool {
	if Falsy(v) {
		return true
	}

	kinds, err := Expand(code)
	if err != nil {
		return false
	}

	actual := Of(v)
	for _, k := range kinds {
		if actual == k {
			return true
		}
	}
	return false
}

// Describe 返回可读描述，例如 "string or object"
func Describe(code string) string {
	kinds, err := Expand(code)
	if err != nil {
		return code
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, " or ")
}
