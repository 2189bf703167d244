package storage

import (
	"slices"
	"strings"
)

// NormalizeTags trims and lowercases tags, drops blanks and duplicates, and sorts the
// result. It never returns nil.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	slices.Sort(normalized)
	return slices.Compact(normalized)
}

// DedupeBySourceURL keeps the first record of every source_url, preserving order.
func DedupeBySourceURL(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	unique := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.SourceURL]; ok {
			continue
		}
		seen[r.SourceURL] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}
