// Package input provides the interfaces and the shared validation of the
// plugins feeding messages into the worker pool.
package input

import (
	"fmt"

	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	log "github.com/sirupsen/logrus"
)

// Target receives the messages. *worker.Pool implements it.
type Target interface {
	Update(u msg.CacheUpdate)
	Value(v msg.Value)
	Request(req msg.ResolveRequest)
}

type Handler interface {
	ProcessCacheUpdate(u msg.CacheUpdate)
	ProcessValue(v msg.Value)
	ProcessRequest(req msg.ResolveRequest)
}

// DefaultHandler validates messages and hands them to a Target. It is
// concurrency-safe.
type DefaultHandler struct {
	receivedUpdates  *stats.Counter32
	receivedValues   *stats.Counter32
	invalidValues    *stats.Counter32
	receivedRequests *stats.Counter32
	invalidRequests  *stats.Counter32

	target Target
}

func NewDefaultHandler(target Target, input string) DefaultHandler {
	return DefaultHandler{
		// metric input.%s.updates.received is the number of cache updates received by input plugin %s
		receivedUpdates: stats.NewCounter32(fmt.Sprintf("input.%s.updates.received", input)),
		// metric input.%s.values.received is the number of values received by input plugin %s
		receivedValues: stats.NewCounter32(fmt.Sprintf("input.%s.values.received", input)),
		// metric input.%s.values.invalid is the number of values without a binding received by input plugin %s
		invalidValues: stats.NewCounter32(fmt.Sprintf("input.%s.values.invalid", input)),
		// metric input.%s.requests.received is the number of resolve requests received by input plugin %s
		receivedRequests: stats.NewCounter32(fmt.Sprintf("input.%s.requests.received", input)),
		// metric input.%s.requests.invalid is the number of invalid resolve requests received by input plugin %s
		invalidRequests: stats.NewCounter32(fmt.Sprintf("input.%s.requests.invalid", input)),

		target: target,
	}
}

func (in DefaultHandler) ProcessCacheUpdate(u msg.CacheUpdate) {
	in.receivedUpdates.Inc()
	in.target.Update(u)
}

func (in DefaultHandler) ProcessValue(v msg.Value) {
	in.receivedValues.Inc()
	if v.OCID == 0 {
		in.invalidValues.Inc()
		log.Debugf("in: invalid value without OCID: %v", v)
		return
	}
	in.target.Value(v)
}

func (in DefaultHandler) ProcessRequest(req msg.ResolveRequest) {
	in.receivedRequests.Inc()
	p := req.Property
	if p.OCID == 0 || p.CounterID == 0 || p.ObjectID == 0 {
		in.invalidRequests.Inc()
		log.Debugf("in: invalid resolve request: %+v", p)
		return
	}
	if !p.Mode.Valid() {
		in.invalidRequests.Inc()
		log.WithField("ocid", p.OCID).Debugf("in: invalid update event mode %d", p.Mode)
		return
	}
	in.target.Request(req)
}
