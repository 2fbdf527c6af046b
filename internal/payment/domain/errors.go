package domain

import "errors"

var (
	ErrInvalidProvider       = errors.New("payment_invalid_provider")
	ErrProviderNotFound      = errors.New("payment_provider_not_found")
	ErrInvalidConfig         = errors.New("payment_invalid_config")
	ErrInvalidSignature      = errors.New("payment_invalid_signature")
	ErrExpiredSignature      = errors.New("payment_expired_signature")
	ErrInvalidPayload        = errors.New("payment_invalid_payload")
	ErrInvalidEvent          = errors.New("payment_invalid_event")
	ErrEventIgnored          = errors.New("payment_event_ignored")
	ErrEventAlreadyProcessed = errors.New("payment_event_already_processed")
)
