// Package keys builds the cache keys used by the search cache.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SearchCacheKeyPrefix namespaces every search cache key. Shared stores scan by it
// when the whole namespace is invalidated.
const SearchCacheKeyPrefix = "search:"

// NormalizeTerm trims and lowercases a search term. A term that is empty after
// trimming is reported as absent.
func NormalizeTerm(term string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(term))
	return normalized, normalized != ""
}

// SearchCacheKey returns the cache key of one search page as seen by one identity.
// An empty identity denotes an anonymous caller.
//
// The fields are encoded as a JSON object whose keys are sorted, so the key does not
// depend on field order, and the digest is a SHA-256. Two different identities, or an
// identity and the anonymous caller, never share a key for the same term and bounds.
func SearchCacheKey(term string, limit, offset int, identity string) string {
	fields := map[string]any{
		"fuid":        nil,
		"limit":       limit,
		"offset":      offset,
		"search_term": nil,
	}
	if normalized, ok := NormalizeTerm(term); ok {
		fields["search_term"] = normalized
	}
	if identity != "" {
		fields["fuid"] = identity
	}

	// a map of strings, ints and nils always encodes
	canonical, _ := json.Marshal(fields)

	sum := sha256.Sum256(canonical)
	return SearchCacheKeyPrefix + hex.EncodeToString(sum[:])
}
