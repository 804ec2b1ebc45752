package clob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Credentials are an already-derived L2 API key set. Deriving them from a
// wallet key is outside this package.
type Credentials struct {
	APIKey     string `json:"api_key" yaml:"api_key"`
	Secret     string `json:"secret" yaml:"secret"`
	Passphrase string `json:"passphrase" yaml:"passphrase"`
}

func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// Sign returns the urlsafe base64 HMAC-SHA256 of timestamp+method+path+body
// keyed by the decoded secret.
func (c Credentials) Sign(ts int64, method, path, body string) (string, error) {
	key, err := decodeSecret(c.Secret)
	if err != nil {
		return "", fmt.Errorf("clob: decode secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10) + method + path + body))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (c Credentials) headers(address, method, path string, now time.Time) (map[string]string, error) {
	ts := now.Unix()
	sig, err := c.Sign(ts, method, path, "")
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_SIGNATURE":  sig,
		"POLY_TIMESTAMP":  strconv.FormatInt(ts, 10),
		"POLY_API_KEY":    c.APIKey,
		"POLY_PASSPHRASE": c.Passphrase,
	}, nil
}

func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
