package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFudge(t *testing.T) {
	cases := map[string]time.Duration{
		"":           DefaultFudge,
		"10":         10 * time.Second,
		"2.5":        2500 * time.Millisecond,
		"0":          0,
		"1m30s":      90 * time.Second,
		"500ms":      500 * time.Millisecond,
		"10 seconds": 10 * time.Second,
		"2 mins":     2 * time.Minute,
		"1h":         time.Hour,
		"3 hrs":      3 * time.Hour,
		"1d":         24 * time.Hour,
		"2 days":     48 * time.Hour,
		"1 week":     7 * 24 * time.Hour,
		"1.5 Minute": 90 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseFudge(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseFudgeInvalid(t *testing.T) {
	for _, in := range []string{"soon", "10 fortnights", "NaN", "inf", "1 2 3"} {
		_, err := ParseFudge(in)
		assert.Error(t, err, "input %q", in)
	}
}
