package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/djskncxm/DuckRequest/internal/metrics"
	"github.com/djskncxm/DuckRequest/pkg/httpc"
)

func runNormalize(opts *cliOptions, url string, stdout, stderr io.Writer) error {
	c, err := newCrawler(opts, stderr, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	req, err := opts.request.build(url)
	if err != nil {
		return err
	}
	d, err := c.Normalize(req)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	return descriptorTable(stdout, d)
}

func descriptorTable(w io.Writer, d *httpc.Descriptor) error {
	ro := d.RequestOptions
	rows := [][]string{
		{"url", d.URL},
		{"requestUrl", d.RequestURL},
		{"method", d.Method()},
		{"protocol", ro.Protocol},
		{"host", ro.Host},
		{"hostname", ro.Hostname},
		{"port", ro.Port},
		{"path", ro.Path},
		{"timeout", d.Options.Timeout.String()},
		{"socketTimeout", d.Options.SocketTimeout.String()},
		{"followRedirects", strconv.FormatBool(d.Options.FollowRedirects)},
		{"maxRedirects", strconv.Itoa(d.Options.MaxRedirects)},
	}

	keys := make([]string, 0, len(d.Options.Headers))
	for k := range d.Options.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, []string{"header " + k, d.Options.Headers[k]})
	}
	if d.Options.HasBody() {
		rows = append(rows, []string{"body", strconv.Itoa(len(d.Options.Body)) + " bytes"})
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"field", "value"})
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// fetchResult 一个 url 的执行结果
type fetchResult struct {
	URL           string `json:"url"`
	Method        string `json:"method"`
	Status        int    `json:"status,omitempty"`
	ContentLength int64  `json:"contentLength,omitempty"`
	Error         string `json:"error,omitempty"`
}

func runFetch(ctx context.Context, opts *cliOptions, urls []string, stdout, stderr io.Writer) error {
	var m metrics.Client
	if opts.metrics {
		m = metrics.NewClient()
	}
	c, err := newCrawler(opts, stderr, m)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		mu      sync.Mutex
		results = make([]fetchResult, len(urls))
	)
	for i, url := range urls {
		i := i
		req, err := opts.request.build(url)
		if err != nil {
			return err
		}
		req.WithCallback(func(res *http.Response, err error) {
			var n int64
			if err == nil {
				n, _ = io.Copy(io.Discard, res.Body)
				res.Body.Close()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			results[i].Status = res.StatusCode
			results[i].ContentLength = n
		})

		ds, err := c.Submit(req)
		if err != nil {
			results[i] = fetchResult{URL: url, Error: err.Error()}
			continue
		}
		results[i] = fetchResult{URL: url, Method: ds[0].Method()}
	}

	runErr := c.Start(ctx)

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	} else if err := resultTable(stdout, results); err != nil {
		return err
	}

	if opts.stats {
		c.Logger.PrintStats(stderr)
	}
	if m != nil {
		if err := m.WriteText(stderr); err != nil {
			return err
		}
	}
	return runErr
}

func resultTable(w io.Writer, results []fetchResult) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"url", "method", "status", "bytes", "error"})
	for _, r := range results {
		status, size := "", ""
		if r.Error == "" {
			status = strconv.Itoa(r.Status)
			size = strconv.FormatInt(r.ContentLength, 10)
		}
		if err := table.Append([]string{r.URL, r.Method, status, size, r.Error}); err != nil {
			return err
		}
	}
	return table.Render()
}
