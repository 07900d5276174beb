package httpc

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djskncxm/DuckRequest/pkg/kind"
)

func TestResolveArguments(t *testing.T) {
	var calls int
	cb := func(*http.Response, error) { calls++ }

	tests := []struct {
		name        string
		args        []any
		wantURL     string
		wantMethod  string
		hasCallback bool
	}{
		{
			name:    "url only",
			args:    []any{"a.com"},
			wantURL: "a.com",
		},
		{
			name:        "url and callback",
			args:        []any{"a.com", cb},
			wantURL:     "a.com",
			hasCallback: true,
		},
		{
			name:        "url, opts and callback",
			args:        []any{"a.com", map[string]any{"method": "put"}, Callback(cb)},
			wantURL:     "a.com",
			wantMethod:  "put",
			hasCallback: true,
		},
		{
			name:       "url and opts",
			args:       []any{"a.com", map[string]string{"method": "head"}},
			wantURL:    "a.com",
			wantMethod: "head",
		},
		{
			name:       "typed options",
			args:       []any{"a.com", &Options{Method: "patch"}},
			wantURL:    "a.com",
			wantMethod: "patch",
		},
		{
			name:       "typed options value",
			args:       []any{"a.com", Options{Method: "patch"}},
			wantURL:    "a.com",
			wantMethod: "patch",
		},
		{
			name:    "nil opts",
			args:    []any{"a.com", nil},
			wantURL: "a.com",
		},
		{
			name:    "nil callback is not a callback",
			args:    []any{"a.com", Callback(nil)},
			wantURL: "a.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ResolveArguments(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, req.URL)
			require.NotNil(t, req.Options)
			assert.Equal(t, tt.wantMethod, req.Options.Method)

			if !tt.hasCallback {
				assert.Nil(t, req.Callback)
				return
			}
			require.NotNil(t, req.Callback)
			before := calls
			req.Callback(nil, nil)
			assert.Equal(t, before+1, calls)
		})
	}
}

func TestResolveArgumentsErrors(t *testing.T) {
	_, err := ResolveArguments()
	var urlErr *InvalidURLTypeError
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, kind.Null, urlErr.Got)

	_, err = ResolveArguments(42, map[string]any{})
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, kind.Number, urlErr.Got)

	_, err = ResolveArguments("a.com", 5)
	var optErr *InvalidOptionTypeError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "opts should be object", err.Error())

	_, err = ResolveArguments("a.com", map[string]any{"maxRedirects": "many"})
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "maxRedirects", optErr.Field)
}

func TestResolveArgumentsClonesOptions(t *testing.T) {
	opts := &Options{Headers: map[string]string{"a": "1"}}
	req, err := ResolveArguments("a.com", opts)
	require.NoError(t, err)

	req.WithHeader("b", "2")
	assert.Len(t, opts.Headers, 1)
	assert.Len(t, req.Options.Headers, 2)
}

func TestRequestBuilder(t *testing.T) {
	req := New("a.com").
		WithMethod("post").
		WithHeader("X-Token", "t").
		WithQuery(QueryString("a=1")).
		WithBody([]byte("x")).
		WithMeta("id", 1)

	assert.Equal(t, "post", req.Options.Method)
	assert.Equal(t, "t", req.Options.Headers["X-Token"])
	assert.Equal(t, QueryString("a=1"), req.Options.Query)
	assert.Equal(t, []byte("x"), req.Options.Body)
	assert.Equal(t, 1, req.Meta["id"])

	empty := &Request{URL: "b.com"}
	empty.WithHeader("k", "v").WithMeta("m", true)
	assert.Equal(t, "v", empty.Options.Headers["k"])
	assert.Equal(t, true, empty.Meta["m"])
}
