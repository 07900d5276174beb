package qs

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

const upperhex = "0123456789ABCDEF"

type entry struct {
	key   string
	value any
}

// Stringify 把对象序列化成查询字符串。
// 支持 *linkedhashmap.Map（保持顺序）、任意 string 键的 map（按键排序）以及切片。
// 其他类型返回空串。
func Stringify(v any, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	entries, _ := entriesOf(v)
	if entries == nil {
		return "", nil
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.value == nil && cfg.SkipNulls {
			continue
		}

		parts = append(parts, stringifyValue(e.value, e.key, cfg)...)
	}

	res := strings.Join(parts, cfg.Delimiter)
	if cfg.AddQueryPrefix && res != "" {
		res = "?" + res
	}
	return res, nil
}

func stringifyValue(v any, prefix string, cfg Config) []string {
	if v == nil {
		v = ""
	}

	if s, ok := primitive(v); ok {
		return []string{encodeKey(prefix, cfg) + "=" + encodeValue(s, cfg)}
	}

	entries, isArray := entriesOf(v)

	if isArray && cfg.ArrayFormat == Comma {
		if len(entries) == 0 {
			return nil
		}
		values := make([]string, 0, len(entries))
		for _, e := range entries {
			s, _ := primitive(e.value)
			values = append(values, s)
		}
		return []string{encodeKey(prefix, cfg) + "=" + encodeValue(strings.Join(values, ","), cfg)}
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.value == nil && cfg.SkipNulls {
			continue
		}

		var key string
		switch {
		case isArray:
			key = arrayPrefix(cfg.ArrayFormat, prefix, e.key)
		case cfg.AllowDots:
			key = prefix + "." + e.key
		default:
			key = prefix + "[" + e.key + "]"
		}
		out = append(out, stringifyValue(e.value, key, cfg)...)
	}
	return out
}

func arrayPrefix(format ArrayFormat, prefix, key string) string {
	switch format {
	case Brackets:
		return prefix + "[]"
	case Repeat, Comma:
		return prefix
	default:
		return prefix + "[" + key + "]"
	}
}

// primitive 把标量转成字符串
func primitive(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		return val.String(), true
	case time.Time:
		return val.UTC().Format("2006-01-02T15:04:05.000Z07:00"), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

// entriesOf 返回对象或数组的键值对；第二个返回值表示是否数组
func entriesOf(v any) ([]entry, bool) {
	if m, ok := v.(*linkedhashmap.Map); ok {
		if m == nil {
			return nil, false
		}
		entries := make([]entry, 0, m.Size())
		it := m.Iterator()
		for it.Next() {
			entries = append(entries, entry{key: fmt.Sprint(it.Key()), value: it.Value()})
		}
		return entries, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)

		entries := make([]entry, 0, len(keys))
		for _, k := range keys {
			val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key()))
			entries = append(entries, entry{key: k, value: val.Interface()})
		}
		return entries, false
	case reflect.Slice, reflect.Array:
		entries := make([]entry, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			entries = append(entries, entry{key: strconv.Itoa(i), value: rv.Index(i).Interface()})
		}
		return entries, true
	}

	return nil, false
}

func encodeKey(key string, cfg Config) string {
	if !cfg.encode() || cfg.EncodeValuesOnly {
		return key
	}
	return Escape(key)
}

func encodeValue(val string, cfg Config) string {
	if !cfg.encode() {
		return val
	}
	return Escape(val)
}

// Escape 按 RFC 3986 编码，只保留非保留字符 A-Z a-z 0-9 - . _ ~
func Escape(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
