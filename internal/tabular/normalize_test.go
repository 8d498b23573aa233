package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"Order ID":           "order_id",
		"Market Value ($M)":  "market_value_m",
		"  Revenue  ":        "revenue",
		"Q1-2024 Results!!":   "q1_2024_results",
		"already_normalized": "already_normalized",
		"___":                InvalidHeader,
		"":                   InvalidHeader,
		"$%&":                InvalidHeader,
		"Änderung":           "nderung",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}

func TestNormalizeHeaderIdempotent(t *testing.T) {
	inputs := []string{
		"Order ID", "Market Value ($M)", "", "___", InvalidHeader,
		"Mixed CASE  with   spaces", "a1 b2 c3", "(unit)",
	}
	for _, in := range inputs {
		once := NormalizeHeader(in)
		assert.Equal(t, once, NormalizeHeader(once), "input %q", in)
	}
}
