package config

import "fmt"

const (
	errRequiredEnvNotSetFmt = "required environment variable %s is not set"
	errGatewayURLInvalidFmt = "%s must be an absolute http(s) URL, got %q"
	errCurrencyInvalidFmt   = "%s must be a three-letter ISO 4217 code, got %q"
)

// messageBuilders formats the configuration errors that name the offending variable.
type messageBuilders struct {
	requiredEnvNotSet func(key string) string
	gatewayURLInvalid func(raw string) string
	currencyInvalid   func(code string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(key string) string {
			return fmt.Sprintf(errRequiredEnvNotSetFmt, key)
		},
		gatewayURLInvalid: func(raw string) string {
			return fmt.Sprintf(errGatewayURLInvalidFmt, envGatewayURL, raw)
		},
		currencyInvalid: func(code string) string {
			return fmt.Sprintf(errCurrencyInvalidFmt, envGatewayCurrency, code)
		},
	}
}

var messages = newMessageBuilders()
