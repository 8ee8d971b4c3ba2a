// Package auth signs and verifies expiring download links for cached blobs.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadToken   = errors.New("bad token")
	ErrBadSig     = errors.New("invalid signature")
	ErrExpired    = errors.New("expired")
	ErrBadPayload = errors.New("bad payload")
)

// BlobLink issues links of the form <BaseURL>/blobs/<path>?token=<token>.
type BlobLink struct {
	Secret  []byte
	BaseURL string // eg., http://localhost:8080
}

// Sign returns base64url(path|expUnix) "." base64url(HMAC-SHA256).
func (b BlobLink) Sign(path string, exp time.Time) string {
	msg := path + "|" + strconv.FormatInt(exp.Unix(), 10)
	payload := base64.RawURLEncoding.EncodeToString([]byte(msg))
	return payload + "." + b.mac([]byte(msg))
}

func (b BlobLink) mac(msg []byte) string {
	m := hmac.New(sha256.New, b.Secret)
	m.Write(msg)
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// Verify checks the signature and expiry of token and returns the blob path
// it grants.
func (b BlobLink) Verify(token string) (string, error) {
	payloadPart, sig, ok := strings.Cut(token, ".")
	if !ok || payloadPart == "" || sig == "" {
		return "", ErrBadToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return "", ErrBadToken
	}
	if !hmac.Equal([]byte(b.mac(payload)), []byte(sig)) {
		return "", ErrBadSig
	}

	i := strings.LastIndexByte(string(payload), '|')
	if i <= 0 {
		return "", ErrBadPayload
	}
	path := string(payload[:i])
	expUnix, err := strconv.ParseInt(string(payload[i+1:]), 10, 64)
	if err != nil {
		return "", ErrBadPayload
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", ErrExpired
	}
	return path, nil
}

// URL returns a signed link to path valid for ttl, and its expiry.
func (b BlobLink) URL(path string, ttl time.Duration) (string, time.Time) {
	exp := time.Now().Add(ttl)
	tok := b.Sign(path, exp)
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		u = &url.URL{}
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/blobs/" + strings.TrimLeft(path, "/")
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String(), exp
}
