package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
)

// Namespaces for detail lookups.
const (
	NamespaceLawDetail    = "law_detail"
	NamespaceAdmRulDetail = "admrul_detail"
)

// Key derives a stable identifier for (action, params): the SHA-256 of the
// canonical JSON (RFC 8785) of {"action": action, "params": params}, in
// lowercase hex. Map key order never affects the result.
func Key(action string, params map[string]any) (string, error) {
	if params == nil {
		params = map[string]any{}
	}
	raw, err := json.Marshal(map[string]any{"action": action, "params": params})
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize cache key: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ObjectPath places key under namespace: "<namespace>/<key>.json".
func ObjectPath(namespace, key string) string {
	return strings.Trim(namespace, "/") + "/" + key + ".json"
}
