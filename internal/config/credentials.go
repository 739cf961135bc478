package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotObject = errors.New("credential payload is not a JSON object")

// ServiceAccountKey is a decoded Google service-account key.
type ServiceAccountKey struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
	UniverseDomain      string `json:"universe_domain"`
}

// String keeps key material out of logs and fmt output.
func (k ServiceAccountKey) String() string {
	return fmt.Sprintf("ServiceAccountKey{project_id=%s client_email=%s private_key=REDACTED}", k.ProjectID, k.ClientEmail)
}

// DecodeCredentials decodes the base64 GA4 service-account key. It returns
// nil, nil when no key is configured.
func DecodeCredentials(s Settings) (*ServiceAccountKey, error) {
	encoded := strings.TrimSpace(s.GA4JSONKeyB64)
	if encoded == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &CredentialDecodeError{Stage: StageBase64, Cause: err}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &CredentialDecodeError{Stage: StageJSON, Cause: errNotObject}
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(trimmed, &key); err != nil {
		return nil, &CredentialDecodeError{Stage: StageJSON, Cause: err}
	}
	return &key, nil
}
