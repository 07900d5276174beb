package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djskncxm/DuckRequest/pkg/httpc"
	"github.com/djskncxm/DuckRequest/pkg/logger"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNormalizeJSON(t *testing.T) {
	out, _, err := execute(t, "normalize", "a.com/x?b=1",
		"--json",
		"--opts", `{"query":{"c":2},"timeout":1500}`,
		"-H", "X-Token: abc",
		"-d", "hello",
	)
	require.NoError(t, err)

	var d httpc.Descriptor
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "http://a.com/x?b=1", d.URL)
	assert.Equal(t, "http://a.com/x?c=2", d.RequestURL)
	assert.Equal(t, "POST", d.RequestOptions.Method)
	assert.Equal(t, "abc", d.Options.Headers["x-token"])
	assert.Equal(t, httpc.DefaultUserAgent, d.Options.Headers["user-agent"])
	assert.Equal(t, 1500*time.Millisecond, d.Options.Timeout)
}

func TestNormalizeTable(t *testing.T) {
	out, _, err := execute(t, "normalize", "https://a.com:8443/p", "-X", "put")
	require.NoError(t, err)
	assert.Contains(t, out, "PUT")
	assert.Contains(t, out, "a.com:8443")
	assert.Contains(t, out, "user-agent")
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad option type", args: []string{"normalize", "a.com", "--opts", `{"timeout":"soon"}`}, want: "opts.timeout should be number"},
		{name: "opts not json", args: []string{"normalize", "a.com", "--opts", `{`}, want: "--opts is not a JSON object"},
		{name: "bad header", args: []string{"normalize", "a.com", "-H", "nocolon"}, want: "invalid header"},
		{name: "missing url", args: []string{"normalize"}, want: "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	out, stderr, err := execute(t, "fetch", srv.URL+"/ok", srv.URL+"/missing", "--json", "--metrics")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var ok, missing fetchResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &missing))
	assert.Equal(t, http.StatusOK, ok.Status)
	assert.EqualValues(t, 5, ok.ContentLength)
	assert.Equal(t, "GET", ok.Method)
	assert.Equal(t, http.StatusNotFound, missing.Status)
	assert.Contains(t, stderr, "duckreq_requests_total")
}

func TestFetchWithConfig(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "setting.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Client:\n  Worker: 1\nHeaders:\n  UserAgent: from-config\nLog:\n  LOGLEVEL: error\n"), 0o600))

	out, _, err := execute(t, "fetch", srv.URL, "--config", path, "--stats")
	require.NoError(t, err)
	assert.Equal(t, "from-config", gotUA.Load())
	assert.Contains(t, out, "200")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version: ")
}

func TestRunLogsErrorThroughDefaultLogger(t *testing.T) {
	var logs bytes.Buffer
	require.NoError(t, logger.InitDefaultLogger(&logger.LogConfig{LogLevel: "info", LogFormat: "text", EnableConsole: true, Output: &logs}))
	t.Cleanup(func() { logger.SetDefaultLogger(nil) })

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"normalize"}, &stdout, &stderr))
	assert.Contains(t, logs.String(), "duckreq 执行失败")
	assert.Contains(t, logs.String(), "accepts 1 arg(s)")

	logs.Reset()
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Empty(t, logs.String())
	assert.Contains(t, stdout.String(), "version:")
}
