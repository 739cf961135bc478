package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or malformed setting. It is fatal and
// surfaces at resolution time.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Credential decode stages reported by CredentialDecodeError.
const (
	StageBase64 = "base64"
	StageJSON   = "json"
)

// CredentialDecodeError reports a credential blob that could not be decoded.
// The message never includes the secret itself.
type CredentialDecodeError struct {
	Stage string
	Cause error
}

func (e *CredentialDecodeError) Error() string {
	return fmt.Sprintf("decode credentials (%s): %v", e.Stage, e.Cause)
}

func (e *CredentialDecodeError) Unwrap() error { return e.Cause }
