package httpc

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"query":           "a=1",
		"path":            "/x?b=2",
		"host":            "b.com:8080",
		"timeout":         1500,
		"socketTimeout":   json.Number("250"),
		"maxRedirects":    float64(3),
		"followRedirects": true,
		"method":          "put",
		"headers":         map[string]any{"X-Num": 1},
		"body":            "hello",
		"port":            float64(9090),
		"arrayFormat":     "brackets",
	})
	require.NoError(t, err)

	assert.Equal(t, QueryString("a=1"), opts.Query)
	assert.Equal(t, "/x?b=2", opts.Path)
	assert.Equal(t, "b.com:8080", opts.Host)
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 250*time.Millisecond, opts.SocketTimeout)
	assert.Equal(t, 3, opts.MaxRedirects)
	assert.True(t, opts.FollowRedirects)
	assert.Equal(t, "put", opts.Method)
	assert.Equal(t, map[string]string{"X-Num": "1"}, opts.Headers)
	assert.Equal(t, []byte("hello"), opts.Body)
	assert.Equal(t, "9090", opts.Port)
	assert.Equal(t, map[string]any{"arrayFormat": "brackets"}, opts.Extra)
}

func TestParseOptionsFalsyValuesIgnored(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"timeout": "",
		"host":    0,
		"body":    "",
		"query":   nil,
	})
	require.NoError(t, err)
	assert.Zero(t, opts.Timeout)
	assert.Empty(t, opts.Host)
	assert.Nil(t, opts.Body)
	assert.Nil(t, opts.Query)
}

func TestParseOptionsQueryVariants(t *testing.T) {
	ordered := linkedhashmap.New()
	ordered.Put("z", "1")

	tests := []struct {
		name  string
		input any
		want  Query
	}{
		{
			name:  "string",
			input: "a=1",
			want:  QueryString("a=1"),
		},
		{
			name:  "generic map",
			input: map[string]any{"a": 1},
			want:  QueryParams{"a": 1},
		},
		{
			name:  "string map",
			input: map[string]string{"a": "1"},
			want:  QueryParams{"a": "1"},
		},
		{
			name:  "ordered map",
			input: ordered,
			want:  OrderedQuery{Map: ordered},
		},
		{
			name:  "struct",
			input: colorQuery{Color: "blue"},
			want:  QueryStruct{Value: colorQuery{Color: "blue"}},
		},
		{
			name:  "struct pointer",
			input: &colorQuery{Color: "red"},
			want:  QueryStruct{Value: &colorQuery{Color: "red"}},
		},
		{
			name:  "typed query passes through",
			input: QueryParams{"b": true},
			want:  QueryParams{"b": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseOptions(map[string]any{"query": tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, opts.Query)
		})
	}
}

type colorQuery struct {
	Color string `url:"color"`
	Sizes []int  `url:"size,omitempty"`
}

func TestParseOptionsKeysAreCaseSensitive(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"PATH":    "/x",
		"Timeout": "soon",
		"Method":  42,
	})
	require.NoError(t, err)
	assert.Empty(t, opts.Path)
	assert.Zero(t, opts.Timeout)
	assert.Empty(t, opts.Method)
	assert.Equal(t, map[string]any{"PATH": "/x", "Timeout": "soon", "Method": 42}, opts.Extra)

	d, err := NormalizeArgs("http://a.com/x?y=1", map[string]any{"PATH": "/evil"})
	require.NoError(t, err)
	assert.Equal(t, "http://a.com/x?y=1", d.RequestURL)
	assert.Equal(t, "/evil", d.Options.Extra["PATH"])
}

func TestParseOptionsBody(t *testing.T) {
	opts, err := ParseOptions(map[string]any{"body": []byte("raw")})
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), opts.Body)

	opts, err = ParseOptions(map[string]any{"body": json.RawMessage(`{"a":1}`)})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), opts.Body)

	_, err = ParseOptions(map[string]any{"body": 42})
	var bodyErr *InvalidBodyTypeError
	require.ErrorAs(t, err, &bodyErr)
	assert.Equal(t, "opts.body should be buffer or string", err.Error())
}

func TestParseOptionsHeaders(t *testing.T) {
	opts, err := ParseOptions(map[string]any{
		"headers": http.Header{"Accept": {"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Accept": "a, b"}, opts.Headers)

	opts, err = ParseOptions(map[string]any{
		"headers": map[string]any{"x": nil, "y": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"y": "1"}, opts.Headers)
}

func TestOptionsClone(t *testing.T) {
	orig := &Options{
		Method:  "get",
		Headers: map[string]string{"a": "1"},
		Extra:   map[string]any{"x": 1},
	}
	c := orig.Clone()
	c.Headers["a"] = "2"
	c.Extra["x"] = 2
	c.Method = "post"

	assert.Equal(t, "1", orig.Headers["a"])
	assert.Equal(t, 1, orig.Extra["x"])
	assert.Equal(t, "get", orig.Method)

	var nilOpts *Options
	assert.NotNil(t, nilOpts.Clone())
}
