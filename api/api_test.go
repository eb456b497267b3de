package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/alepiz/counterprocessor/worker"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

type fakePool struct {
	ready bool
	last  msg.ResolveRequest
}

func (f *fakePool) Ready() bool { return f.ready }

func (f *fakePool) Status() []worker.Status {
	return []worker.Status{{ID: 0, Ready: f.ready, Counters: 2, OCIDs: 3}}
}

func (f *fakePool) Explain(ctx context.Context, req msg.ResolveRequest) (*variables.Result, error) {
	f.last = req
	return &variables.Result{
		Calculate: true,
		Variables: map[string]interface{}{"OBJECT_NAME": req.Property.ObjectName},
		Trace:     variables.Trace{{Name: "OBJECT_NAME", Result: req.Property.ObjectName}},
	}, nil
}

func newTestServer(pool Pool) *Server {
	s := NewServer(pool, prometheus.NewRegistry())
	s.Tracer = opentracing.NoopTracer{}
	s.RegisterRoutes()
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Macaron.ServeHTTP(rec, req)
	return rec
}

func TestServer(t *testing.T) {
	Convey("Given a server", t, func() {
		pool := &fakePool{}
		s := newTestServer(pool)

		Convey("it is unavailable until the workers are ready", func() {
			So(do(s, "GET", "/", "").Code, ShouldEqual, http.StatusServiceUnavailable)
			pool.ready = true
			So(do(s, "GET", "/", "").Code, ShouldEqual, http.StatusOK)
		})
		Convey("it reports the workers", func() {
			rec := do(s, "GET", "/workers", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var status []worker.Status
			So(json.Unmarshal(rec.Body.Bytes(), &status), ShouldBeNil)
			So(status, ShouldHaveLength, 1)
			So(status[0].OCIDs, ShouldEqual, 3)
		})
		Convey("it describes the functions", func() {
			rec := do(s, "GET", "/functions/avg", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var f function
			So(json.Unmarshal(rec.Body.Bytes(), &f), ShouldBeNil)
			So(f.Usage, ShouldEqual, "avg(period, [shift])")
			So(do(s, "GET", "/functions/nope", "").Code, ShouldEqual, http.StatusNotFound)

			rec = do(s, "GET", "/functions", "")
			var all []function
			So(json.Unmarshal(rec.Body.Bytes(), &all), ShouldBeNil)
			So(all, ShouldHaveLength, 21)
		})
		Convey("it explains a counter", func() {
			body := `{"property": {"OCID": 201, "objectID": 1, "objectName": "db-1", "counterID": 20, "counterName": "status"}}`
			So(do(s, "POST", "/explain", body).Code, ShouldEqual, http.StatusServiceUnavailable)

			pool.ready = true
			rec := do(s, "POST", "/explain", body)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(pool.last.Property.OCID, ShouldEqual, schema.OCID(201))
			var res explainResponse
			So(json.Unmarshal(rec.Body.Bytes(), &res), ShouldBeNil)
			So(res.Calculate, ShouldBeTrue)
			So(res.Variables["OBJECT_NAME"], ShouldEqual, "db-1")
			So(res.Trace, ShouldHaveLength, 1)

			So(do(s, "POST", "/explain", "{").Code, ShouldEqual, http.StatusBadRequest)
		})
		Convey("it serves metrics", func() {
			So(do(s, "GET", "/metrics", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}
