// Package util holds small helpers shared by the HTTP and logging layers.
package util

import (
	"net/url"
	"strings"
)

// HideToken obscures a credential for logging, keeping only a few characters at each end.
func HideToken(token string) string {
	switch n := len(token); {
	case n > 12:
		return token[:4] + "..." + token[n-4:]
	case n > 4:
		return token[:1] + "..." + token[n-1:]
	default:
		return strings.Repeat("*", n)
	}
}

// MaskSensitiveQuery masks credential-like query parameters, such as the wheel token
// and the Kiwify signature, within a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart, valuePart, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !shouldMaskQueryParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(HideToken(strings.TrimSpace(decodedValue)))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func shouldMaskQueryParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	key = strings.TrimSuffix(key, "[]")
	for _, marker := range []string{"token", "secret", "signature", "password"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
