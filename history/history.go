// Package history addresses the time-series store of the bindings.
// A window is requested either by record position ("#" sigil) or by time,
// optionally with a strict completeness check ("!" sigil on the count).
package history

import (
	"context"
	"flag"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/human"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/tracing"
	"github.com/grafana/globalconf"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	// shift values above this are timestamps in ms, not offsets from now
	EpochThreshold int64 = 1477236595310
	// position mode: share of the requested records that must be returned
	PositionRatio = 0.9
	// time mode: how far the first record may lie after "from", in average intervals
	IntervalRatio = 1.2

	requestTimeoutStr string
	RequestTimeout    = 30 * time.Second

	// metric history.fetch is the duration of history fetches
	fetchDuration = stats.NewLatencyHistogram15s32("history.fetch")
	// metric history.fetch.errors is the number of fetches that failed in the store
	fetchErrors = stats.NewCounter32("history.fetch.errors")
	// metric history.fetch.incomplete is the number of windows that failed the strict completeness check
	fetchIncomplete = stats.NewCounter32("history.fetch.incomplete")
)

func ConfigSetup() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.Int64Var(&EpochThreshold, "epoch-threshold", EpochThreshold, "shift values above this many ms are timestamps instead of offsets from now")
	fs.Float64Var(&PositionRatio, "position-ratio", PositionRatio, "strict position windows need at least this share of the requested records")
	fs.Float64Var(&IntervalRatio, "interval-ratio", IntervalRatio, "strict time windows need their first record within this many average intervals of the start")
	fs.StringVar(&requestTimeoutStr, "request-timeout", "30s", "timeout of one request to the history store")
	globalconf.Register("history", fs, flag.ExitOnError)
}

func ConfigProcess() {
	if PositionRatio <= 0 || PositionRatio > 1 {
		log.Fatalf("history: position-ratio must be in (0, 1], got %v", PositionRatio)
	}
	if IntervalRatio < 1 {
		log.Fatalf("history: interval-ratio must be >= 1, got %v", IntervalRatio)
	}
	RequestTimeout = time.Duration(dur.MustParseNDuration("request-timeout", requestTimeoutStr)) * time.Second
}

// Store is the time-series store. One Fetch is one round trip.
type Store interface {
	Fetch(ctx context.Context, req msg.FetchRequest) (msg.FetchResponse, error)
}

// Writer persists new values. Both the memory and the http store implement it.
type Writer interface {
	Write(ctx context.Context, values []msg.Value) error
}

// Accessor turns the textual window arguments of aggregation functions into
// store requests and validates what comes back.
type Accessor struct {
	Store Store
	Now   func() time.Time
}

func NewAccessor(store Store) *Accessor {
	return &Accessor{
		Store: store,
		Now:   time.Now,
	}
}

// Window is a parsed pair of window arguments.
type Window struct {
	Position bool
	Strict   bool
	Shift    int64 // position: records back from the newest. time: from, ms
	Count    int64 // position: number of records. time: to, ms
}

func (w Window) String() string {
	if w.Position {
		return fmt.Sprintf("records #%d..#%d back", w.Shift, w.Shift+w.Count)
	}
	return fmt.Sprintf("%s - %s", time.Unix(0, w.Shift*int64(time.Millisecond)).UTC().Format(time.RFC3339),
		time.Unix(0, w.Count*int64(time.Millisecond)).UTC().Format(time.RFC3339))
}

// ParseWindow interprets shift and count relative to now (ms).
func ParseWindow(shift, count string, now int64) (Window, error) {
	var w Window
	shift = strings.TrimSpace(shift)
	count = strings.TrimSpace(count)
	for len(count) > 0 && (count[0] == '!' || count[0] == '#') {
		if count[0] == '!' {
			w.Strict = true
		} else {
			w.Position = true
		}
		count = strings.TrimSpace(count[1:])
	}
	if strings.HasPrefix(shift, "#") {
		w.Position = true
		shift = strings.TrimSpace(shift[1:])
	}
	if count == "" {
		return w, errors.New(errors.ExpressionError, "empty window size")
	}
	c, ok := human.Number(count)
	if !ok {
		return w, errors.New(errors.ExpressionError, "bad window size %q", count)
	}
	var s float64
	if shift != "" {
		s, ok = human.Number(shift)
		if !ok {
			return w, errors.New(errors.ExpressionError, "bad window shift %q", shift)
		}
	}
	if s < 0 || c < 0 {
		return w, errors.New(errors.ExpressionError, "negative window %q, %q", shift, count)
	}
	shiftMs, countMs := int64(math.Round(s)), int64(math.Round(c))

	if w.Position {
		w.Shift, w.Count = shiftMs, countMs
		return w, nil
	}
	if shiftMs > EpochThreshold {
		w.Shift = shiftMs
		if countMs > EpochThreshold {
			w.Count = countMs
		} else {
			w.Count = shiftMs + countMs
		}
		return w, nil
	}
	w.Count = now - shiftMs
	w.Shift = w.Count - countMs
	return w, nil
}

// Fetch returns the records of the window and whether the window is complete.
// A strict window that is not complete yields a FetchIncomplete error and no records.
func (a *Accessor) Fetch(ctx context.Context, id schema.OCID, shift, count string, want msg.WantType) ([]schema.Record, bool, error) {
	w, err := ParseWindow(shift, count, a.Now().UnixNano()/int64(time.Millisecond))
	if err != nil {
		return nil, false, err
	}
	return a.FetchWindow(ctx, id, w, want)
}

func (a *Accessor) FetchWindow(ctx context.Context, id schema.OCID, w Window, want msg.WantType) ([]schema.Record, bool, error) {
	if w.Count == 0 || (!w.Position && w.Count <= w.Shift) {
		if w.Strict {
			return nil, false, errors.New(errors.FetchIncomplete, "ocid %d: empty window", id)
		}
		return nil, true, nil
	}

	ctx, span := tracing.NewSpan(ctx, "history.fetch")
	span.SetTag("ocid", uint64(id))
	span.SetTag("window", w.String())
	defer span.Finish()

	req := msg.FetchRequest{
		ID:       id,
		Position: w.Position,
		Shift:    w.Shift,
		Count:    w.Count,
		WantType: want,
	}
	if RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
	}
	pre := time.Now()
	resp, err := a.Store.Fetch(ctx, req)
	fetchDuration.Value(time.Since(pre))
	if err != nil {
		fetchErrors.Inc()
		tracing.Error(span, err)
		return nil, false, errors.Wrap(errors.FetchIncomplete, err, "ocid %d, %s", id, w)
	}

	records := Convert(resp.Records, want)
	if !w.Strict {
		return records, resp.GotAll, nil
	}
	if reason := incomplete(records, w); reason != "" {
		fetchIncomplete.Inc()
		log.WithFields(log.Fields{
			"ocid":   id,
			"window": w.String(),
		}).Debugf("history: %s", reason)
		return nil, false, errors.New(errors.FetchIncomplete, "ocid %d, %s: %s", id, w, reason)
	}
	return records, true, nil
}

// incomplete returns why a strict window does not hold the full requested range,
// or "" when it does.
func incomplete(records []schema.Record, w Window) string {
	if w.Position {
		need := PositionRatio * float64(w.Count)
		if float64(len(records)) < need {
			return fmt.Sprintf("got %d of %d records, need %d%%", len(records), w.Count, int(PositionRatio*100))
		}
		return ""
	}
	if len(records) < 2 {
		return fmt.Sprintf("got %d records, need at least 2", len(records))
	}
	first, last := records[0].Timestamp, records[len(records)-1].Timestamp
	avg := float64(last-first) / float64(len(records)-1)
	if gap := float64(first - w.Shift); gap > IntervalRatio*avg {
		return fmt.Sprintf("first record is %s after the window start, average interval is %s",
			human.Duration(int64(gap)), human.Duration(int64(avg)))
	}
	return ""
}

// Convert applies the requested data type to records, in place.
func Convert(records []schema.Record, want msg.WantType) []schema.Record {
	switch want {
	case msg.WantNumeric:
		for i := range records {
			if f, ok := records[i].Float(); ok {
				records[i].Data = f
			}
		}
	case msg.WantString:
		for i := range records {
			records[i].Data = schema.ToString(records[i].Data)
		}
	}
	return records
}
