package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// GenerateKey fingerprints a parameter map.
//
// Names are sorted and rendered as name=JSON(value) pairs joined by "&";
// the key is the hex SHA-256 of that string, so it is independent of map
// order and has a fixed length.
func GenerateKey(params map[string]any) (string, error) {
	canonical, err := Canonical(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// Canonical returns the pre-hash form of a parameter map.
func Canonical(params map[string]any) (string, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		b, err := json.Marshal(params[name])
		if err != nil {
			return "", fmt.Errorf("cache key param %q: %w", name, err)
		}
		pairs = append(pairs, name+"="+string(b))
	}
	return strings.Join(pairs, "&"), nil
}
