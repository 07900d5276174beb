package qs

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

var (
	bracketSegment = regexp.MustCompile(`\[[^\[\]]*\]`)
	dotSegment     = regexp.MustCompile(`\.([^.\[]+)`)
)

// sparse 解析过程中的数组，下标可以不连续，最后按下标压缩
type sparse struct {
	items map[int]any
}

func newSparse(values ...any) *sparse {
	s := &sparse{items: make(map[int]any, len(values))}
	for i, v := range values {
		s.items[i] = v
	}
	return s
}

func (s *sparse) length() int {
	n := 0
	for i := range s.items {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

func (s *sparse) push(v any) {
	s.items[s.length()] = v
}

func (s *sparse) indices() []int {
	idx := make([]int, 0, len(s.items))
	for i := range s.items {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Parse 解析查询字符串，支持 a[b]=c、a[]=b、a[0]=b 这类嵌套写法。
// 返回的 map 保持键的出现顺序，值为 string、bool、[]any 或 *linkedhashmap.Map。
func Parse(s string, cfg Config) (*linkedhashmap.Map, error) {
	cfg = cfg.withDefaults()
	out := linkedhashmap.New()

	if cfg.IgnoreQueryPrefix {
		s = strings.TrimPrefix(s, "?")
	}
	if s == "" {
		return out, nil
	}

	parts := strings.Split(s, cfg.Delimiter)
	if len(parts) > cfg.ParameterLimit {
		parts = parts[:cfg.ParameterLimit]
	}

	// 先按原始键合并重复项
	flat := linkedhashmap.New()
	for _, part := range parts {
		if part == "" {
			continue
		}

		pos := strings.Index(part, "]=")
		if pos == -1 {
			pos = strings.Index(part, "=")
		} else {
			pos++
		}

		var key, val string
		if pos == -1 {
			key = decode(part)
		} else {
			key = decode(part[:pos])
			val = decode(part[pos+1:])
		}
		if key == "" {
			continue
		}

		if existing, found := flat.Get(key); found {
			flat.Put(key, combine(existing, val))
		} else {
			flat.Put(key, val)
		}
	}

	var root any = out
	it := flat.Iterator()
	for it.Next() {
		chain := splitKey(it.Key().(string), cfg)
		if len(chain) == 0 {
			continue
		}
		root = merge(root, buildObject(chain, it.Value(), cfg))
	}

	compacted := compact(root)
	if m, ok := compacted.(*linkedhashmap.Map); ok {
		return m, nil
	}

	// 顶层是数组时（例如 "[0]=a"）按下标转成对象
	res := linkedhashmap.New()
	if arr, ok := compacted.([]any); ok {
		for i, v := range arr {
			res.Put(strconv.Itoa(i), v)
		}
	}
	return res, nil
}

func decode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	res, err := url.QueryUnescape(s)
	if err != nil {
		return strings.ReplaceAll(s, "+", " ")
	}
	return res
}

func combine(existing any, val any) any {
	if arr, ok := existing.(*sparse); ok {
		arr.push(val)
		return arr
	}
	return newSparse(existing, val)
}

// splitKey 把 "a[b][c]" 拆成 ["a", "[b]", "[c]"]，超过 depth 的部分整体作为一段
func splitKey(key string, cfg Config) []string {
	if cfg.AllowDots {
		key = dotSegment.ReplaceAllString(key, "[$1]")
	}

	segments := bracketSegment.FindAllStringIndex(key, -1)

	parent := key
	if len(segments) > 0 {
		parent = key[:segments[0][0]]
	}

	chain := make([]string, 0, len(segments)+1)
	if parent != "" {
		chain = append(chain, parent)
	}

	for i, seg := range segments {
		if i >= cfg.Depth {
			chain = append(chain, "["+key[seg[0]:]+"]")
			break
		}
		chain = append(chain, key[seg[0]:seg[1]])
	}

	return chain
}

func buildObject(chain []string, val any, cfg Config) any {
	leaf := val
	for i := len(chain) - 1; i >= 0; i-- {
		root := chain[i]

		if root == "[]" {
			if _, ok := leaf.(*sparse); !ok {
				leaf = newSparse(leaf)
			}
			continue
		}

		clean := root
		if strings.HasPrefix(root, "[") && strings.HasSuffix(root, "]") {
			clean = root[1 : len(root)-1]
		}

		idx, err := strconv.Atoi(clean)
		if root != clean && err == nil && strconv.Itoa(idx) == clean && idx >= 0 && idx <= cfg.ArrayLimit {
			arr := &sparse{items: map[int]any{idx: leaf}}
			leaf = arr
			continue
		}

		obj := linkedhashmap.New()
		obj.Put(clean, leaf)
		leaf = obj
	}
	return leaf
}

func isContainer(v any) bool {
	switch v.(type) {
	case *sparse, *linkedhashmap.Map:
		return true
	}
	return false
}

func merge(target any, source any) any {
	if source == nil {
		return target
	}

	if !isContainer(source) {
		switch t := target.(type) {
		case *sparse:
			t.push(source)
			return t
		case *linkedhashmap.Map:
			if key, ok := source.(string); ok {
				t.Put(key, true)
			}
			return t
		default:
			return newSparse(target, source)
		}
	}

	switch t := target.(type) {
	case *sparse:
		if src, ok := source.(*sparse); ok {
			for _, i := range src.indices() {
				item := src.items[i]
				if existing, has := t.items[i]; has {
					if isContainer(existing) && isContainer(item) {
						t.items[i] = merge(existing, item)
					} else {
						t.push(item)
					}
				} else {
					t.items[i] = item
				}
			}
			return t
		}
		return mergeObject(arrayToObject(t), source)
	case *linkedhashmap.Map:
		return mergeObject(t, source)
	default:
		arr := newSparse(target)
		if src, ok := source.(*sparse); ok {
			for _, i := range src.indices() {
				arr.push(src.items[i])
			}
		} else {
			arr.push(source)
		}
		return arr
	}
}

func mergeObject(target *linkedhashmap.Map, source any) *linkedhashmap.Map {
	put := func(key string, val any) {
		if existing, found := target.Get(key); found {
			target.Put(key, merge(existing, val))
		} else {
			target.Put(key, val)
		}
	}

	switch src := source.(type) {
	case *sparse:
		for _, i := range src.indices() {
			put(strconv.Itoa(i), src.items[i])
		}
	case *linkedhashmap.Map:
		it := src.Iterator()
		for it.Next() {
			put(it.Key().(string), it.Value())
		}
	}
	return target
}

func arrayToObject(arr *sparse) *linkedhashmap.Map {
	obj := linkedhashmap.New()
	for _, i := range arr.indices() {
		obj.Put(strconv.Itoa(i), arr.items[i])
	}
	return obj
}

func compact(v any) any {
	switch val := v.(type) {
	case *sparse:
		res := make([]any, 0, len(val.items))
		for _, i := range val.indices() {
			res = append(res, compact(val.items[i]))
		}
		return res
	case *linkedhashmap.Map:
		it := val.Iterator()
		for it.Next() {
			val.Put(it.Key(), compact(it.Value()))
		}
		return val
	}
	return v
}
