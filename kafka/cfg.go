// Package kafka holds the settings and helpers shared by the kafka input
// and the kafka publisher.
package kafka

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/tools/tls"
	log "github.com/sirupsen/logrus"
)

type KafkaNet struct {
	tlsEnabled    bool
	tlsSkipVerify bool
	tlsClientCert string
	tlsClientKey  string
	saslEnabled   bool
	saslMechanism string
	saslUsername  string
	saslPassword  string
}

func (k *KafkaNet) Configure(config *sarama.Config) {
	if k.tlsEnabled {
		tlsConfig, err := tls.NewConfig(k.tlsClientCert, k.tlsClientKey)
		if err != nil {
			log.Fatalf("kafka: failed to create TLS config: %s", err)
		}

		config.Net.TLS.Enable = true
		config.Net.TLS.Config = tlsConfig
		config.Net.TLS.Config.InsecureSkipVerify = k.tlsSkipVerify
	}

	if k.saslEnabled {
		switch k.saslMechanism {
		case "SCRAM-SHA-256":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA256} }
		case "SCRAM-SHA-512":
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
			config.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient { return &XDGSCRAMClient{HashGeneratorFcn: SHA512} }
		case "PLAINTEXT":
			config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		default:
			log.Fatalf("kafka: failed to recognize sasl-mechanism: '%s'", k.saslMechanism)
		}
		config.Net.SASL.Enable = true
		config.Net.SASL.User = k.saslUsername
		config.Net.SASL.Password = k.saslPassword
	}
}

func ConfigNet(FlagSet *flag.FlagSet) *KafkaNet {
	kn := &KafkaNet{}
	FlagSet.BoolVar(&kn.tlsEnabled, "tls-enabled", false, "Whether to enable TLS")
	FlagSet.BoolVar(&kn.tlsSkipVerify, "tls-skip-verify", false, "Whether to skip TLS server cert verification")
	FlagSet.StringVar(&kn.tlsClientCert, "tls-client-cert", "", "Client cert for client authentication (use with -tls-enabled and -tls-client-key)")
	FlagSet.StringVar(&kn.tlsClientKey, "tls-client-key", "", "Client key for client authentication (use with -tls-enabled and -tls-client-cert)")
	FlagSet.BoolVar(&kn.saslEnabled, "sasl-enabled", false, "Whether to enable SASL")
	FlagSet.StringVar(&kn.saslMechanism, "sasl-mechanism", "", "The SASL mechanism configuration (possible values: SCRAM-SHA-256, SCRAM-SHA-512, PLAINTEXT)")
	FlagSet.StringVar(&kn.saslUsername, "sasl-username", "", "Username for client authentication (use with -sasl-enabled and -sasl-password)")
	FlagSet.StringVar(&kn.saslPassword, "sasl-password", "", "Password for client authentication (use with -sasl-enabled and -sasl-user)")

	return kn
}

// ParsePartitions parses a partitions setting: "*" for all available
// partitions or a comma separated list of ids, all of which must be available.
func ParsePartitions(s string, available []int32) ([]int32, error) {
	if s == "*" {
		return available, nil
	}
	var partitions []int32
	for _, part := range strings.Split(s, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("could not parse partition %q. partitions must be '*' or a comma separated list of id's", part)
		}
		partitions = append(partitions, int32(i))
	}
	if missing := DiffPartitions(partitions, available); len(missing) > 0 {
		return nil, fmt.Errorf("configured partitions not in list of available partitions. missing %v", missing)
	}
	return partitions, nil
}
