package input

import (
	"testing"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

type fakeTarget struct {
	updates  int
	values   []msg.Value
	requests []msg.ResolveRequest
}

func (f *fakeTarget) Update(u msg.CacheUpdate)       { f.updates++ }
func (f *fakeTarget) Value(v msg.Value)              { f.values = append(f.values, v) }
func (f *fakeTarget) Request(req msg.ResolveRequest) { f.requests = append(f.requests, req) }

func TestDefaultHandler(t *testing.T) {
	target := &fakeTarget{}
	in := NewDefaultHandler(target, "test")

	in.ProcessCacheUpdate(msg.CacheUpdate{FullUpdate: true})
	in.ProcessValue(msg.Value{OCID: 0, Data: 1.0})
	in.ProcessValue(msg.Value{OCID: 5, Data: 1.0})
	in.ProcessRequest(msg.ResolveRequest{Property: msg.ResolveProperty{OCID: 5, CounterID: 1, ObjectID: 1}})
	in.ProcessRequest(msg.ResolveRequest{Property: msg.ResolveProperty{OCID: 5}})
	in.ProcessRequest(msg.ResolveRequest{Property: msg.ResolveProperty{OCID: 5, CounterID: 1, ObjectID: 1, Mode: schema.UpdateMode(9)}})

	if target.updates != 1 {
		t.Fatalf("expected 1 update, got %d", target.updates)
	}
	if len(target.values) != 1 || target.values[0].OCID != 5 {
		t.Fatalf("expected only the value of OCID 5, got %v", target.values)
	}
	if len(target.requests) != 1 {
		t.Fatalf("expected only the valid request, got %d", len(target.requests))
	}
	if got := in.invalidRequests.Peek(); got != 2 {
		t.Fatalf("expected 2 invalid requests, got %d", got)
	}
}
