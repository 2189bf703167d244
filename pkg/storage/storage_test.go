package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name     string
		in       []string
		expected []string
	}{
		{name: "nil", in: nil, expected: []string{}},
		{name: "blanks_dropped", in: []string{"", "  ", "\t"}, expected: []string{}},
		{name: "lowercased_and_sorted", in: []string{"Zoo", " food ", "Biology"}, expected: []string{"biology", "food", "zoo"}},
		{name: "duplicates_after_normalization", in: []string{"Food", "food", " FOOD"}, expected: []string{"food"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, NormalizeTags(test.in))
		})
	}
}

func TestDedupeBySourceURL(t *testing.T) {
	records := []Record{
		{Name: "first", SourceURL: "https://a"},
		{Name: "other", SourceURL: "https://b"},
		{Name: "second", SourceURL: "https://a"},
	}

	unique := DedupeBySourceURL(records)
	require.Len(t, unique, 2)
	require.Equal(t, "first", unique[0].Name)
	require.Equal(t, "other", unique[1].Name)
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("CAN_EDIT")
	require.NoError(t, err)
	require.Equal(t, CapabilityCanEdit, c)

	c, err = ParseCapability("CAN_DELETE")
	require.NoError(t, err)
	require.Equal(t, CapabilityCanDelete, c)

	for _, invalid := range []string{"CREATED", "can_edit", ""} {
		_, err := ParseCapability(invalid)
		require.ErrorIs(t, err, ErrInvalidCapability)
	}
}
