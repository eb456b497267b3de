package worker

import (
	"sync"

	"github.com/alepiz/counterprocessor/schema/msg"
)

type itemKind uint8

const (
	itemUpdate itemKind = iota
	itemValue
	itemRequest
)

type item struct {
	kind    itemKind
	update  msg.CacheUpdate
	value   msg.Value
	request msg.ResolveRequest
}

// inbox is an unbounded FIFO. Put never blocks, so that workers can hand
// requests to each other without deadlocking.
type inbox struct {
	sync.Mutex
	items  []item
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

func (in *inbox) Put(it item) {
	in.Lock()
	in.items = append(in.items, it)
	in.Unlock()
	select {
	case in.notify <- struct{}{}:
	default:
	}
}

// Take removes and returns everything queued.
func (in *inbox) Take() []item {
	in.Lock()
	items := in.items
	in.items = nil
	in.Unlock()
	return items
}

func (in *inbox) Len() int {
	in.Lock()
	defer in.Unlock()
	return len(in.items)
}
