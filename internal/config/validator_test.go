package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeoutSeconds:  10 * time.Second,
			WriteTimeoutSeconds: 10 * time.Second,
		},
		CRM: CRMConfig{
			BaseURL:        "https://crm.example.com/rest/lead.get",
			TimeoutSeconds: 10,
		},
		Downstream: DownstreamConfig{
			URL:            "https://hooks.example.com/lead",
			TimeoutSeconds: 10,
		},
		Relay: RelayConfig{
			AcceptedStatuses:     []string{"WON", "C5"},
			RecencyWindowSeconds: 60,
		},
	}
}

func TestValidateStatic_Valid(t *testing.T) {
	assert.NoError(t, ValidateStatic(validConfig()))
}

func TestValidateStatic_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero port", func(cfg *Config) { cfg.Server.Port = 0 }},
		{"port out of range", func(cfg *Config) { cfg.Server.Port = 70000 }},
		{"missing crm url", func(cfg *Config) { cfg.CRM.BaseURL = "" }},
		{"relative crm url", func(cfg *Config) { cfg.CRM.BaseURL = "not a url" }},
		{"zero crm timeout", func(cfg *Config) { cfg.CRM.TimeoutSeconds = 0 }},
		{"missing downstream url", func(cfg *Config) { cfg.Downstream.URL = "" }},
		{"zero downstream timeout", func(cfg *Config) { cfg.Downstream.TimeoutSeconds = 0 }},
		{"no accepted statuses", func(cfg *Config) { cfg.Relay.AcceptedStatuses = nil }},
		{"empty status entry", func(cfg *Config) { cfg.Relay.AcceptedStatuses = []string{"WON", ""} }},
		{"zero recency window", func(cfg *Config) { cfg.Relay.RecencyWindowSeconds = 0 }},
		{"broker enabled without brokers", func(cfg *Config) {
			cfg.Broker = BrokerConfig{Enabled: true, Type: "kafka", Kafka: KafkaConfig{AuditTopic: "relay_decisions"}}
		}},
		{"broker enabled with unknown type", func(cfg *Config) {
			cfg.Broker = BrokerConfig{Enabled: true, Type: "rabbitmq"}
		}},
		{"broker enabled without audit topic", func(cfg *Config) {
			cfg.Broker = BrokerConfig{Enabled: true, Type: "kafka", Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateStatic(cfg))
		})
	}
}

func TestValidateStatic_BrokerDisabledSkipsBrokerChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Broker = BrokerConfig{Enabled: false}
	require.NoError(t, ValidateStatic(cfg))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "crm.base_url", Message: "CRM base URL is required"}
	assert.Equal(t, "validation error for field 'crm.base_url': CRM base URL is required", err.Error())
}
