// Package httpstore is a client of the history store http api:
//
//	POST /fetch   a msg.FetchRequest, answered with a msg.FetchResponse
//	POST /values  a list of msg.Value to append
//
// Bodies are encoded with msg.Encode in the configured format.
package httpstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/tracing"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

const contentType = "application/vnd.counterprocessor"

var (
	// metric store.http.fetch is the duration of fetch requests to the history store
	fetchDuration = stats.NewLatencyHistogram15s32("store.http.fetch")
	// metric store.http.write is the duration of write requests to the history store
	writeDuration = stats.NewLatencyHistogram15s32("store.http.write")
	// metric store.http.errors is the number of failed requests to the history store
	requestErrors = stats.NewCounter32("store.http.errors")
	// metric store.http.values is the number of values written to the history store
	valuesWritten = stats.NewCounter32("store.http.values")
)

// Values is the body of a write request.
type Values struct {
	Values []msg.Value `json:"values"`
}

type HTTPStore struct {
	client     *resty.Client
	format     msg.Format
	writeBatch int
}

func New(cfg *StoreConfig) (*HTTPStore, error) {
	format, err := msg.FormatFromString(cfg.Format)
	if err != nil {
		return nil, err
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Addr, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMax).
		SetHeader("Content-Type", contentType).
		SetHeader("Accept", contentType).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	log.Infof("store: using history store at %s", cfg.Addr)
	return &HTTPStore{
		client:     client,
		format:     format,
		writeBatch: cfg.WriteBatch,
	}, nil
}

func (s *HTTPStore) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		requestErrors.Inc()
		return nil, err
	}
	if resp.IsError() {
		requestErrors.Inc()
		return nil, fmt.Errorf("%s: %s: %s", path, resp.Status(), strings.TrimSpace(string(resp.Body())))
	}
	return resp.Body(), nil
}

// Fetch implements history.Store.
func (s *HTTPStore) Fetch(ctx context.Context, req msg.FetchRequest) (msg.FetchResponse, error) {
	ctx, span := tracing.NewSpan(ctx, "store.http.fetch")
	span.SetTag("ocid", uint64(req.ID))
	defer span.Finish()

	pre := time.Now()
	body, err := msg.Encode(s.format, &req)
	if err != nil {
		return msg.FetchResponse{}, err
	}
	data, err := s.post(ctx, "/fetch", body)
	if err != nil {
		tracing.Error(span, err)
		return msg.FetchResponse{}, err
	}
	var resp msg.FetchResponse
	if err := msg.Decode(data, &resp); err != nil {
		tracing.Error(span, err)
		return msg.FetchResponse{}, err
	}
	fetchDuration.Value(time.Since(pre))
	span.SetTag("records", len(resp.Records))
	return resp, nil
}

// Write appends values, in batches of at most write-batch values.
// Values only support the json formats.
func (s *HTTPStore) Write(ctx context.Context, values []msg.Value) error {
	format := s.format
	if format == msg.FormatMsgp {
		format = msg.FormatSnappyJSON
	}
	for len(values) > 0 {
		n := s.writeBatch
		if n > len(values) {
			n = len(values)
		}
		pre := time.Now()
		body, err := msg.Encode(format, Values{Values: values[:n]})
		if err != nil {
			return err
		}
		if _, err := s.post(ctx, "/values", body); err != nil {
			return err
		}
		writeDuration.Value(time.Since(pre))
		valuesWritten.Add(n)
		values = values[n:]
	}
	return nil
}
