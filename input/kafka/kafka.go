// Package kafka is the input plugin consuming cache updates, values and
// resolve requests from kafka.
package kafka

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/alepiz/counterprocessor/input"
	"github.com/alepiz/counterprocessor/kafka"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/grafana/globalconf"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
)

// metric input.kafka.decode_err is a count of times an input message failed to parse
var decodeErr = stats.NewCounter32("input.kafka.decode_err")

// metric input.kafka.consumer_restarts is a count of times a partition consumer was restarted
var consumerRestarts = stats.NewCounter32("input.kafka.consumer_restarts")

type topicKind uint8

const (
	kindUpdates topicKind = iota
	kindValues
	kindRequests
)

func (k topicKind) String() string {
	switch k {
	case kindUpdates:
		return "updates"
	case kindValues:
		return "values"
	}
	return "requests"
}

type topic struct {
	name       string
	kind       topicKind
	offset     string
	partitions []int32
	stats      stats.Kafka
}

type Kafka struct {
	input.Handler
	consumer sarama.Consumer
	client   sarama.Client
	wg       sync.WaitGroup

	shutdown chan struct{}
	// signal to caller that it should shutdown
	cancel context.CancelFunc
}

func (k *Kafka) Name() string {
	return "kafka"
}

var Enabled bool
var kafkaVersionStr string
var brokerStr string
var brokers []string
var updatesTopic string
var valuesTopic string
var requestsTopic string
var partitionStr string
var offsetStr string
var updatesOffsetStr string
var config *sarama.Config
var channelBufferSize int
var consumerFetchMin int
var consumerFetchDefault int
var consumerMaxWaitTime time.Duration
var consumerMaxProcessingTime time.Duration
var netMaxOpenRequests int
var retryMax time.Duration
var kafkaNet *kafka.KafkaNet
var topics []*topic

func ConfigSetup() {
	inKafka := flag.NewFlagSet("kafka-in", flag.ExitOnError)
	inKafka.BoolVar(&Enabled, "enabled", false, "")
	inKafka.StringVar(&brokerStr, "brokers", "kafka:9092", "tcp address for kafka (may be be given multiple times as a comma-separated list)")
	inKafka.StringVar(&kafkaVersionStr, "kafka-version", "2.0.0", "Kafka version in semver format. All brokers must be this version or newer.")
	inKafka.StringVar(&updatesTopic, "updates-topic", "cp-updates", "kafka topic of the cache updates. all of its partitions are consumed")
	inKafka.StringVar(&valuesTopic, "values-topic", "cp-values", "kafka topic of the new counter values. empty to disable")
	inKafka.StringVar(&requestsTopic, "requests-topic", "cp-requests", "kafka topic of the resolve requests. empty to disable")
	inKafka.StringVar(&offsetStr, "offset", "newest", "Set the offset to start consuming values and requests from. Can be oldest, newest or a time duration")
	inKafka.StringVar(&updatesOffsetStr, "updates-offset", "newest", "Set the offset to start consuming cache updates from. Can be oldest, newest or a time duration")
	inKafka.StringVar(&partitionStr, "partitions", "*", "kafka partitions of the values and requests topics to consume. use '*' or a comma separated list of id's")
	inKafka.IntVar(&channelBufferSize, "channel-buffer-size", 1000, "The number of messages to buffer in internal and external channels")
	inKafka.IntVar(&consumerFetchMin, "consumer-fetch-min", 1, "The minimum number of message bytes to fetch in a request")
	inKafka.IntVar(&consumerFetchDefault, "consumer-fetch-default", 32768, "The default number of message bytes to fetch in a request")
	inKafka.DurationVar(&consumerMaxWaitTime, "consumer-max-wait-time", time.Second, "The maximum amount of time the broker will wait for Consumer.Fetch.Min bytes to become available before it returns fewer than that anyway")
	inKafka.DurationVar(&consumerMaxProcessingTime, "consumer-max-processing-time", time.Second, "The maximum amount of time the consumer expects a message takes to process")
	inKafka.IntVar(&netMaxOpenRequests, "net-max-open-requests", 100, "How many outstanding requests a connection is allowed to have before sending on it blocks")
	inKafka.DurationVar(&retryMax, "retry-max", time.Minute, "The maximum pause between two attempts to restart a failed partition consumer")
	kafkaNet = kafka.ConfigNet(inKafka)
	globalconf.Register("kafka-in", inKafka, flag.ExitOnError)
}

func validOffset(s string) error {
	switch s {
	case "oldest", "newest":
		return nil
	}
	_, err := time.ParseDuration(s)
	return err
}

func ConfigProcess(instance string) {
	if !Enabled {
		return
	}

	kafkaVersion, err := sarama.ParseKafkaVersion(kafkaVersionStr)
	if err != nil {
		log.Fatalf("kafka-in: invalid kafka-version. %s", err)
	}
	if consumerMaxWaitTime == 0 {
		log.Fatal("kafka-in: consumer-max-wait-time must be greater then 0")
	}
	if consumerMaxProcessingTime == 0 {
		log.Fatal("kafka-in: consumer-max-processing-time must be greater then 0")
	}
	for _, o := range []string{offsetStr, updatesOffsetStr} {
		if err := validOffset(o); err != nil {
			log.Fatalf("kafka-in: invalid offset format %q. %s", o, err)
		}
	}
	if updatesTopic == "" {
		log.Fatal("kafka-in: updates-topic must be set")
	}

	brokers = strings.Split(brokerStr, ",")

	config = sarama.NewConfig()
	config.ClientID = instance + "-in"
	config.ChannelBufferSize = channelBufferSize
	config.Consumer.Fetch.Min = int32(consumerFetchMin)
	config.Consumer.Fetch.Default = int32(consumerFetchDefault)
	config.Consumer.MaxWaitTime = consumerMaxWaitTime
	config.Consumer.MaxProcessingTime = consumerMaxProcessingTime
	config.Net.MaxOpenRequests = netMaxOpenRequests
	config.Version = kafkaVersion
	kafkaNet.Configure(config)

	err = config.Validate()
	if err != nil {
		log.Fatalf("kafka-in: invalid config: %s", err)
	}
	// validate our partitions
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		log.Fatalf("kafka-in: failed to create client. %s", err)
	}
	defer client.Close()

	updateParts, err := kafka.GetPartitions(client, []string{updatesTopic})
	if err != nil {
		log.Fatalf("kafka-in: %s", err.Error())
	}
	// metric input.kafka.updates.partition.%d.offset is the current offset for the partition (%d) of the updates topic that we have consumed.

	// metric input.kafka.updates.partition.%d.log_size is the current size of the partition (%d) of the updates topic, aka the newest available offset.

	// metric input.kafka.updates.partition.%d.lag is how many cache updates there are in the partition (%d) that we have not yet consumed.
	topics = []*topic{{name: updatesTopic, kind: kindUpdates, offset: updatesOffsetStr, partitions: updateParts, stats: stats.NewKafka("input.kafka.updates", updateParts)}}

	var dataTopics []string
	for _, t := range []string{valuesTopic, requestsTopic} {
		if t != "" {
			dataTopics = append(dataTopics, t)
		}
	}
	if len(dataTopics) == 0 {
		return
	}
	availParts, err := kafka.GetPartitions(client, dataTopics)
	if err != nil {
		log.Fatalf("kafka-in: %s", err.Error())
	}
	log.Infof("kafka-in: available partitions %v", availParts)
	partitions, err := kafka.ParsePartitions(partitionStr, availParts)
	if err != nil {
		log.Fatalf("kafka-in: %s", err)
	}
	// metric input.kafka.values.partition.%d.lag is how many values there are in the partition (%d) that we have not yet consumed.

	// metric input.kafka.requests.partition.%d.lag is how many resolve requests there are in the partition (%d) that we have not yet consumed.
	if valuesTopic != "" {
		topics = append(topics, &topic{name: valuesTopic, kind: kindValues, offset: offsetStr, partitions: partitions, stats: stats.NewKafka("input.kafka.values", partitions)})
	}
	if requestsTopic != "" {
		topics = append(topics, &topic{name: requestsTopic, kind: kindRequests, offset: offsetStr, partitions: partitions, stats: stats.NewKafka("input.kafka.requests", partitions)})
	}
}

func New() *Kafka {
	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		log.Fatalf("kafka-in: failed to create client. %s", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		log.Fatalf("kafka-in: failed to create consumer: %s", err)
	}
	log.Info("kafka-in: consumer created without error")
	return &Kafka{
		consumer: consumer,
		client:   client,
		shutdown: make(chan struct{}),
	}
}

func (k *Kafka) Start(handler input.Handler, cancel context.CancelFunc) error {
	k.Handler = handler
	k.cancel = cancel
	for _, t := range topics {
		for _, partition := range t.partitions {
			offset, err := k.startOffset(t, partition)
			if err != nil {
				return err
			}
			k.wg.Add(1)
			go k.consumePartition(t, partition, offset)
		}
	}
	return nil
}

func (k *Kafka) startOffset(t *topic, partition int32) (int64, error) {
	switch t.offset {
	case "oldest":
		return sarama.OffsetOldest, nil
	case "newest":
		return sarama.OffsetNewest, nil
	}
	d, err := time.ParseDuration(t.offset)
	if err != nil {
		return 0, err
	}
	offset, err := k.client.GetOffset(t.name, partition, time.Now().Add(-1*d).UnixNano()/int64(time.Millisecond))
	if err != nil {
		log.Warnf("kafka-in: failed to get offset %s: %s -> will use oldest instead", d, err)
		return sarama.OffsetOldest, nil
	}
	return offset, nil
}

// tryGetOffset will to query kafka repeatedly for the requested offset and give up after attempts unsuccesfull attempts
// an error is returned when it had to give up
func (k *Kafka) tryGetOffset(topic string, partition int32, offset int64, attempts int, sleep time.Duration) (int64, error) {

	var val int64
	var err error
	var offsetStr string

	switch offset {
	case sarama.OffsetNewest:
		offsetStr = "newest"
	case sarama.OffsetOldest:
		offsetStr = "oldest"
	default:
		offsetStr = strconv.FormatInt(offset, 10)
	}

	attempt := 1
	for {
		val, err = k.client.GetOffset(topic, partition, offset)
		if err == nil {
			break
		}

		err = fmt.Errorf("failed to get offset %s of partition %s:%d. %s (attempt %d/%d)", offsetStr, topic, partition, err, attempt, attempts)
		if attempt == attempts {
			break
		}
		log.Warnf("kafka-in: %s", err.Error())
		attempt += 1
		time.Sleep(sleep)
	}
	return val, err
}

// consumePartition consumes from the topic until k.shutdown is triggered.
// A partition consumer that fails is restarted after a growing pause.
func (k *Kafka) consumePartition(t *topic, partition int32, currentOffset int64) {
	defer k.wg.Done()

	// determine the pos of the topic and the initial offset of our consumer
	newest, err := k.tryGetOffset(t.name, partition, sarama.OffsetNewest, 7, time.Second*10)
	if err != nil {
		log.Errorf("kafka-in: %s", err.Error())
		k.cancel()
		return
	}
	if currentOffset == sarama.OffsetNewest {
		currentOffset = newest
	} else if currentOffset == sarama.OffsetOldest {
		currentOffset, err = k.tryGetOffset(t.name, partition, sarama.OffsetOldest, 7, time.Second*10)
		if err != nil {
			log.Errorf("kafka-in: %s", err.Error())
			k.cancel()
			return
		}
	}

	kafkaStats := t.stats[partition]
	kafkaStats.Offset.Set(int(currentOffset))
	kafkaStats.LogSize.Set(int(newest))
	kafkaStats.Lag.Set(int(newest - currentOffset))
	go k.trackStats(t, partition)

	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    retryMax,
		Factor: 2,
		Jitter: true,
	}
	for {
		next, ok := k.consume(t, partition, currentOffset)
		if !ok {
			return
		}
		currentOffset = next
		consumerRestarts.Inc()
		pause := b.Duration()
		log.Warnf("kafka-in: restarting consumer for %s:%d at offset %d in %s", t.name, partition, currentOffset, pause)
		select {
		case <-time.After(pause):
		case <-k.shutdown:
			return
		}
	}
}

// consume runs one partition consumer. It returns the offset to resume from
// and whether the consumer should be restarted.
func (k *Kafka) consume(t *topic, partition int32, currentOffset int64) (int64, bool) {
	kafkaStats := t.stats[partition]
	log.Infof("kafka-in: consuming from %s:%d from offset %d", t.name, partition, currentOffset)
	pc, err := k.consumer.ConsumePartition(t.name, partition, currentOffset)
	if err != nil {
		log.Errorf("kafka-in: failed to start partitionConsumer for %s:%d. %s", t.name, partition, err)
		return currentOffset, true
	}
	kafkaStats.Ready.SetTrue()
	messages := pc.Messages()
	for {
		select {
		case m, ok := <-messages:
			// https://github.com/Shopify/sarama/wiki/Frequently-Asked-Questions#why-am-i-getting-a-nil-message-from-the-sarama-consumer
			if !ok {
				kafkaStats.Ready.SetFalse()
				log.Errorf("kafka-in: kafka consumer for %s:%d has shutdown", t.name, partition)
				return currentOffset, true
			}
			if log.IsLevelEnabled(log.DebugLevel) {
				log.Debugf("kafka-in: received message: Topic %s, Partition: %d, Offset: %d, Key: %x", m.Topic, m.Partition, m.Offset, m.Key)
			}
			k.handleMsg(t.kind, m.Value)
			currentOffset = m.Offset + 1
			kafkaStats.Offset.Set(int(m.Offset))
		case <-k.shutdown:
			pc.Close()
			log.Infof("kafka-in: consumer for %s:%d ended.", t.name, partition)
			return currentOffset, false
		}
	}
}

func (k *Kafka) handleMsg(kind topicKind, data []byte) {
	var err error
	switch kind {
	case kindUpdates:
		var u msg.CacheUpdate
		if err = msg.Decode(data, &u); err == nil {
			k.Handler.ProcessCacheUpdate(u)
		}
	case kindValues:
		var v msg.Value
		if err = msg.Decode(data, &v); err == nil {
			k.Handler.ProcessValue(v)
		}
	case kindRequests:
		var req msg.ResolveRequest
		if err = msg.Decode(data, &req); err == nil {
			k.Handler.ProcessRequest(req)
		}
	}
	if err != nil {
		decodeErr.Inc()
		log.Errorf("kafka-in: decode error, skipping %s message. %s", kind, err)
	}
}

// Stop will initiate a graceful stop of the Consumer (permanent)
// and block until it stopped.
func (k *Kafka) Stop() {
	// closes notifications and messages channels, amongst others
	close(k.shutdown)
	k.wg.Wait()
	k.client.Close()
}

func (k *Kafka) trackStats(t *topic, partition int32) {
	ticker := time.NewTicker(time.Second)
	kafkaStats := t.stats[partition]
	for {
		select {
		case <-k.shutdown:
			ticker.Stop()
			return
		case <-ticker.C:
			currentOffset := int64(kafkaStats.Offset.Peek())
			newest, err := k.tryGetOffset(t.name, partition, sarama.OffsetNewest, 1, 0)
			if err != nil {
				log.Errorf("kafka-in: %s", err.Error())
				continue
			}
			kafkaStats.LogSize.Set(int(newest))
			kafkaStats.Lag.Set(int(newest - currentOffset))
		}
	}
}
