// Package kafka publishes resolved counters to collectors running in other
// processes.
package kafka

import (
	"context"
	"flag"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/alepiz/counterprocessor/kafka"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/worker"
	"github.com/grafana/globalconf"
	log "github.com/sirupsen/logrus"
)

var (
	// metric output.kafka.published.jobs is the number of jobs published
	publishedJobs = stats.NewCounter32("output.kafka.published.jobs")
	// metric output.kafka.published.removals is the number of removal messages published
	publishedRemovals = stats.NewCounter32("output.kafka.published.removals")
	// metric output.kafka.publish is the duration of a publish
	publishDuration = stats.NewLatencyHistogram15s32("output.kafka.publish")
	// metric output.kafka.send_error.producer is the number of messages kafka refused
	sendErrProducer = stats.NewCounter32("output.kafka.send_error.producer")
	// metric output.kafka.send_error.other is the number of failed sends for other reasons
	sendErrOther = stats.NewCounter32("output.kafka.send_error.other")

	Enabled            bool
	brokerStr          string
	kafkaVersionStr    string
	topic              string
	codec              string
	formatStr          string
	partitionSchemeStr string
	flushFreq          time.Duration
	maxMessages        int
	kafkaNet           *kafka.KafkaNet
)

func ConfigSetup() {
	outKafka := flag.NewFlagSet("kafka-out", flag.ExitOnError)
	outKafka.BoolVar(&Enabled, "enabled", false, "publish counters of collectors with dispatch = kafka")
	outKafka.StringVar(&brokerStr, "brokers", "kafka:9092", "tcp address for kafka (may be be given multiple times as a comma-separated list)")
	outKafka.StringVar(&kafkaVersionStr, "kafka-version", "2.0.0", "Kafka version in semver format. All brokers must be this version or newer.")
	outKafka.StringVar(&topic, "topic", "cp-jobs", "kafka topic of the jobs")
	outKafka.StringVar(&codec, "compression", "snappy", "compression: none|gzip|snappy|lz4")
	outKafka.StringVar(&formatStr, "format", "json", "message format: json|snappy-json")
	outKafka.StringVar(&partitionSchemeStr, "partition-scheme", "byOCID", "method used for partitioning jobs. (byOCID|byCounter)")
	outKafka.DurationVar(&flushFreq, "flush-freq", time.Millisecond*50, "The best-effort frequency of flushes to kafka")
	outKafka.IntVar(&maxMessages, "max-messages", 5000, "The maximum number of messages the producer will send in a single request")
	kafkaNet = kafka.ConfigNet(outKafka)
	globalconf.Register("kafka-out", outKafka, flag.ExitOnError)
}

func getCompression(codec string) sarama.CompressionCodec {
	switch codec {
	case "none":
		return sarama.CompressionNone
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	default:
		log.Fatalf("kafka-out: unknown compression codec %q", codec)
		return 0 // make go compiler happy, needs a return *roll eyes*
	}
}

func validateBrokers(brokers []string) {
	for _, b := range brokers {
		if b == "" {
			log.Fatal("kafka-out: invalid broker ''")
		}
		cnt := strings.Count(b, ":")
		if cnt > 1 {
			log.Fatalf("kafka-out: invalid broker %q", b)
		}
		if cnt == 1 {
			parts := strings.SplitN(b, ":", 2)
			if parts[0] == "" || parts[1] == "" {
				log.Fatalf("kafka-out: invalid broker %q", b)
			}
			if _, err := strconv.Atoi(parts[1]); err != nil {
				log.Fatalf("kafka-out: invalid broker %q: %s", b, err.Error())
			}
		}
	}
}

// Publisher sends jobs to a kafka topic, partitioned by binding or by
// counter. It implements worker.Dispatcher.
type Publisher struct {
	producer      sarama.SyncProducer
	topic         string
	numPartitions int32
	method        schema.PartitionByMethod
	format        msg.Format
}

func NewPublisher(producer sarama.SyncProducer, topic string, numPartitions int32, method schema.PartitionByMethod, format msg.Format) *Publisher {
	return &Publisher{
		producer:      producer,
		topic:         topic,
		numPartitions: numPartitions,
		method:        method,
		format:        format,
	}
}

// New creates a Publisher from the kafka-out settings. It returns nil if
// publishing is disabled.
func New(instance string) *Publisher {
	if !Enabled {
		return nil
	}
	brokers := strings.Split(brokerStr, ",")
	validateBrokers(brokers)

	kafkaVersion, err := sarama.ParseKafkaVersion(kafkaVersionStr)
	if err != nil {
		log.Fatalf("kafka-out: invalid kafka-version. %s", err)
	}
	method, err := schema.PartitionMethodFromString(partitionSchemeStr)
	if err != nil {
		log.Fatalf("kafka-out: invalid partition-scheme %q. %s", partitionSchemeStr, err)
	}
	format, err := msg.FormatFromString(formatStr)
	if err != nil || format == msg.FormatMsgp {
		log.Fatalf("kafka-out: invalid format %q", formatStr)
	}

	// We are looking for strong consistency semantics.
	// Because we don't change the flush settings, sarama will try to produce messages
	// as fast as possible to keep latency low.
	config := sarama.NewConfig()
	config.ClientID = instance + "-out"
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas to ack the message
	config.Producer.Retry.Max = 10                   // Retry up to 10 times to produce the message
	config.Producer.Compression = getCompression(codec)
	config.Producer.Return.Successes = true
	config.Producer.Flush.Frequency = flushFreq
	config.Producer.Flush.MaxMessages = maxMessages
	config.Producer.Partitioner = sarama.NewManualPartitioner
	config.Version = kafkaVersion
	kafkaNet.Configure(config)
	err = config.Validate()
	if err != nil {
		log.Fatalf("kafka-out: failed to validate kafka config. %s", err)
	}

	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		log.Fatalf("kafka-out: failed to initialize kafka client %s", err)
	}
	partitions, err := kafka.GetPartitions(client, []string{topic})
	if err != nil {
		log.Fatalf("kafka-out: %s", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		log.Fatalf("kafka-out: failed to initialize kafka producer. %s", err)
	}
	log.Infof("kafka-out: publishing to %s with %d partitions", topic, len(partitions))
	return NewPublisher(producer, topic, int32(len(partitions)), method, format)
}

func (p *Publisher) Dispatch(ctx context.Context, job worker.Job) error {
	res := job.Resolution
	partition, err := schema.PartitionID(p.method, res.ID, res.CounterID, p.numPartitions)
	if err != nil {
		return err
	}
	data, err := msg.Encode(p.format, msg.Job{
		Collector:  job.Collector,
		Multiplier: job.Multiplier,
		Resolution: &res,
	})
	if err != nil {
		return err
	}
	err = p.send([]*sarama.ProducerMessage{{
		Topic:     p.topic,
		Partition: partition,
		Key:       sarama.StringEncoder(job.Collector),
		Value:     sarama.ByteEncoder(data),
	}})
	if err != nil {
		return err
	}
	publishedJobs.Inc()
	return nil
}

// RemoveCounters sends one removal message to every partition owning some
// of the bindings. With counter partitioning, removals go to all partitions
// as the counter of a removed binding is no longer known.
func (p *Publisher) RemoveCounters(ctx context.Context, ocids []schema.OCID) error {
	if len(ocids) == 0 {
		return nil
	}
	byPartition := make(map[int32][]schema.OCID)
	if p.method == schema.PartitionByOCID {
		for _, ocid := range ocids {
			part := ocid.Partition(p.numPartitions)
			byPartition[part] = append(byPartition[part], ocid)
		}
	} else {
		for part := int32(0); part < p.numPartitions; part++ {
			byPartition[part] = ocids
		}
	}
	parts := make([]int32, 0, len(byPartition))
	for part := range byPartition {
		parts = append(parts, part)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })

	payload := make([]*sarama.ProducerMessage, 0, len(parts))
	for _, part := range parts {
		data, err := msg.Encode(p.format, msg.Job{Removed: byPartition[part]})
		if err != nil {
			return err
		}
		payload = append(payload, &sarama.ProducerMessage{
			Topic:     p.topic,
			Partition: part,
			Value:     sarama.ByteEncoder(data),
		})
	}
	if err := p.send(payload); err != nil {
		return err
	}
	publishedRemovals.Add(len(payload))
	return nil
}

func (p *Publisher) send(payload []*sarama.ProducerMessage) error {
	pre := time.Now()
	err := p.producer.SendMessages(payload)
	if err != nil {
		if errors, ok := err.(sarama.ProducerErrors); ok {
			sendErrProducer.Add(len(errors))
			for i := 0; i < 10 && i < len(errors); i++ {
				log.Errorf("kafka-out: SendMessages ProducerError %d/%d: %s", i, len(errors), errors[i].Error())
			}
		} else {
			sendErrOther.Inc()
			log.Errorf("kafka-out: SendMessages error: %s", err.Error())
		}
		return err
	}
	publishDuration.Value(time.Since(pre))
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
