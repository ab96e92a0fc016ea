package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_DisabledByDefault(t *testing.T) {
	cfg, err := Load("messaging")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Enabled {
		t.Error("kafka should be disabled unless KAFKA_ENABLED is set")
	}
	if cfg.ConsumerGroup != "dogfordate-messaging" {
		t.Errorf("ConsumerGroup = %s", cfg.ConsumerGroup)
	}
}

func TestLoad_Enabled(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaBrokers, " k1:9092, ,k2:9092 ")

	cfg, err := Load("bookings")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
}

func TestValidate_Enabled(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load("bookings")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"ProducerCompression", "ProducerRequireAcks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %q", want, err.Error())
		}
	}
}

func TestValidate_DisabledSkipsChecks(t *testing.T) {
	cfg := &Config{Enabled: false, ProducerCompression: "bogus"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}
}

func TestPerInstance(t *testing.T) {
	cfg, err := Load("messaging")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConsumerStartOffset != OffsetNewest {
		t.Fatalf("default start offset = %d, want newest", cfg.ConsumerStartOffset)
	}

	cfg.PerInstance("host-a")
	if cfg.ConsumerGroup != "dogfordate-messaging-host-a" {
		t.Errorf("ConsumerGroup = %s", cfg.ConsumerGroup)
	}
	if cfg.ConsumerStartOffset != OffsetOldest {
		t.Errorf("ConsumerStartOffset = %d, want oldest", cfg.ConsumerStartOffset)
	}
}
