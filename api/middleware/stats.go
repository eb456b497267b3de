// Package middleware holds the macaron handlers wrapped around every api request.
package middleware

import (
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alepiz/counterprocessor/stats"
	"gopkg.in/macaron.v1"
)

type requestStats struct {
	sync.Mutex
	responseCounts    map[string]map[int]*stats.Counter32
	latencyHistograms map[string]*stats.LatencyHistogram15s32
}

func (r *requestStats) PathStatusCount(path string, status int) {
	r.Lock()
	p, ok := r.responseCounts[path]
	if !ok {
		p = make(map[int]*stats.Counter32)
		r.responseCounts[path] = p
	}
	c, ok := p[status]
	if !ok {
		// metric api.request.%s.status.%d is the count of the number of responses for each request path, status code combination.
		// eg. `api.request.workers.status.200` and `api.request.explain.status.503`
		c = stats.NewCounter32(fmt.Sprintf("api.request.%s.status.%d", path, status))
		p[status] = c
	}
	r.Unlock()
	c.Inc()
}

func (r *requestStats) PathLatency(path string, dur time.Duration) {
	r.Lock()
	p, ok := r.latencyHistograms[path]
	if !ok {
		// metric api.request.%s is the latency of each request by request path.
		p = stats.NewLatencyHistogram15s32(fmt.Sprintf("api.request.%s", path))
		r.latencyHistograms[path] = p
	}
	r.Unlock()
	p.Value(dur)
}

// RequestStats returns a middleware that tracks request metrics.
func RequestStats() macaron.Handler {
	stats := requestStats{
		responseCounts:    make(map[string]map[int]*stats.Counter32),
		latencyHistograms: make(map[string]*stats.LatencyHistogram15s32),
	}

	return func(ctx *macaron.Context) {
		start := time.Now()
		rw := ctx.Resp.(macaron.ResponseWriter)
		// call next handler. This will return after all handlers
		// have completed and the request has been sent.
		ctx.Next()
		path := pathSlug(ctx.Req.URL.Path)
		stats.PathStatusCount(path, rw.Status())
		stats.PathLatency(path, time.Since(start))
	}
}

// pathSlug names a request path in metric names. Path parameters are
// folded into their route so that every function does not get its own metric.
func pathSlug(p string) string {
	slug := strings.TrimPrefix(path.Clean(p), "/")
	if slug == "" || slug == "." {
		return "root"
	}
	if strings.HasPrefix(slug, "functions/") {
		return "functions_name"
	}
	return strings.Replace(slug, "/", "_", -1)
}
