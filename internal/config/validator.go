package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateCRM(cfg.CRM); err != nil {
		errors = append(errors, err)
	}

	if err := validateDownstream(cfg.Downstream); err != nil {
		errors = append(errors, err)
	}

	if err := validateRelay(cfg.Relay); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateCRM(cfg CRMConfig) error {
	if cfg.BaseURL == "" {
		return &ValidationError{
			Field:   "crm.base_url",
			Message: "CRM base URL is required",
		}
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return &ValidationError{
			Field:   "crm.base_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "crm.timeout_seconds",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateDownstream(cfg DownstreamConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "downstream.url",
			Message: "downstream webhook URL is required",
		}
	}

	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return &ValidationError{
			Field:   "downstream.url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		}
	}

	if cfg.TimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "downstream.timeout_seconds",
			Message: "timeout must be positive",
		}
	}

	return nil
}

func validateRelay(cfg RelayConfig) error {
	if len(cfg.AcceptedStatuses) == 0 {
		return &ValidationError{
			Field:   "relay.accepted_statuses",
			Message: "at least one accepted status identifier is required",
		}
	}

	for i, status := range cfg.AcceptedStatuses {
		if status == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("relay.accepted_statuses[%d]", i),
				Message: "status identifier cannot be empty",
			}
		}
	}

	if cfg.RecencyWindowSeconds <= 0 {
		return &ValidationError{
			Field:   "relay.recency_window_seconds",
			Message: "recency window must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Type != "kafka" {
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka)", cfg.Type),
		}
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Kafka.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.Kafka.AuditTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.audit_topic",
			Message: "audit topic is required when broker is enabled",
		}
	}

	return nil
}
