package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"positions", "positions", true},
		{"positions", "orders", false},
		{"positions", "positions.eu", false},
		{"positions.*", "positions.eu", true},
		{"positions.*", "positions", false},
		{"positions.*", "positions.eu.desk1", false},
		{"*.eu", "positions.eu", true},
		{"*.eu", "positions.us", false},
		{"positions.>", "positions.eu", true},
		{"positions.>", "positions.eu.desk1", true},
		{"positions.>", "positions", false},
		{"positions.*.desk1", "positions.eu.desk1", true},
		{"positions.*.desk1", "positions.eu.desk2", false},
		{">", "", true},
		{">", "anything.at.all", true},
		{"a.>.b", "a.x.b", false},
	}
	for _, tc := range cases {
		t.Run(tc.pattern+"|"+tc.topic, func(t *testing.T) {
			require.Equal(t, tc.want, Match(tc.pattern, tc.topic))
		})
	}
}

func TestValidPattern(t *testing.T) {
	valid := []string{">", "positions", "positions.*", "positions.>", "*.eu.>", "a.*.c"}
	for _, p := range valid {
		require.True(t, ValidPattern(p), p)
	}

	invalid := []string{"", ".", "a..b", "a.>.b", "pos*", "a.b>", "a."}
	for _, p := range invalid {
		require.False(t, ValidPattern(p), p)
	}
}
