package kafka

import (
	"context"
	"fmt"
	"testing"

	"github.com/Shopify/sarama/mocks"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/worker"
)

func decodeJob(check func(msg.Job) error) mocks.ValueChecker {
	return func(val []byte) error {
		var job msg.Job
		if err := msg.Decode(val, &job); err != nil {
			return err
		}
		return check(job)
	}
}

func TestDispatch(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	p := NewPublisher(producer, "cp-jobs", 8, schema.PartitionByOCID, msg.FormatSnappyJSON)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeJob(func(job msg.Job) error {
		if job.Collector != "ping" || job.Multiplier != 2 {
			return fmt.Errorf("unexpected job %+v", job)
		}
		if job.Resolution == nil || job.Resolution.ID != 201 || job.Resolution.Parameters["host"] != "db-1" {
			return fmt.Errorf("unexpected resolution %+v", job.Resolution)
		}
		return nil
	}))

	err := p.Dispatch(context.Background(), worker.Job{
		Collector:  "ping",
		Multiplier: 2,
		Resolution: msg.Resolution{
			ID:         201,
			CounterID:  20,
			ObjectID:   1,
			Parameters: map[string]interface{}{"host": "db-1"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDispatchError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	p := NewPublisher(producer, "cp-jobs", 8, schema.PartitionByOCID, msg.FormatJSON)

	producer.ExpectSendMessageAndFail(fmt.Errorf("broker down"))
	err := p.Dispatch(context.Background(), worker.Job{Collector: "ping", Resolution: msg.Resolution{ID: 1}})
	if err == nil {
		t.Fatal("expected the send error to be returned")
	}
}

func TestRemoveCounters(t *testing.T) {
	ocids := []schema.OCID{101, 202, 303, 404}
	parts := make(map[int32]bool)
	for _, ocid := range ocids {
		parts[ocid.Partition(4)] = true
	}

	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	p := NewPublisher(producer, "cp-jobs", 4, schema.PartitionByOCID, msg.FormatJSON)

	seen := 0
	for range parts {
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeJob(func(job msg.Job) error {
			if job.Resolution != nil || len(job.Removed) == 0 {
				return fmt.Errorf("expected a removal, got %+v", job)
			}
			seen += len(job.Removed)
			return nil
		}))
	}
	if err := p.RemoveCounters(context.Background(), ocids); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if seen != len(ocids) {
		t.Fatalf("expected all %d ocids to be published once, got %d", len(ocids), seen)
	}
}
