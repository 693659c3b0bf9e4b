package service

import (
	"encoding/json"
	"testing"

	"holder-risk-engine/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFraction(t *testing.T) {
	tests := []struct {
		name     string
		raw      entity.RawPercentage
		expected float64
		ok       bool
	}{
		{name: "decimal string", raw: "0.05", expected: 0.05, ok: true},
		{name: "exponent", raw: "1.5e-3", expected: 0.0015, ok: true},
		{name: "padded", raw: "  0.2 ", expected: 0.2, ok: true},
		{name: "zero", raw: "0", expected: 0, ok: true},
		{name: "empty", raw: "", expected: 0, ok: false},
		{name: "garbage", raw: "abc", expected: 0, ok: false},
		{name: "not a number", raw: "NaN", expected: 0, ok: false},
		{name: "infinity", raw: "Inf", expected: 0, ok: false},
		{name: "negative", raw: "-0.1", expected: 0, ok: false},
		{name: "overflows float64", raw: "1e400", expected: 0, ok: false},
		{name: "overflows near max", raw: "5e308", expected: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fraction, ok := ParseFraction(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, fraction, 1e-12)
		})
	}
}

func TestRawHolder_UnmarshalAcceptsNumbersAndStrings(t *testing.T) {
	payload := `[
		{"address":"A","amount_percentage":"0.25"},
		{"address":"B","amount_percentage":0.125},
		{"address":"C","amount_percentage":null},
		{"address":"D"}
	]`

	var raw []entity.RawHolder
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	require.Len(t, raw, 4)

	holders, malformed := NormalizeHolders(raw)
	require.Len(t, holders, 4)
	assert.Equal(t, 2, malformed)
	assert.InDelta(t, 0.25, holders[0].Fraction, 1e-12)
	assert.InDelta(t, 0.125, holders[1].Fraction, 1e-12)
	assert.Equal(t, 0.0, holders[2].Fraction)
	assert.Equal(t, 0.0, holders[3].Fraction)
	assert.Equal(t, "D", holders[3].Address)
}

func TestNormalizeHolders_MalformedDefaultsToZero(t *testing.T) {
	raw := []entity.RawHolder{
		{Address: "A", AmountPercentage: "0.4"},
		{Address: "B", AmountPercentage: "forty"},
	}

	holders, malformed := NormalizeHolders(raw)

	assert.Equal(t, 1, malformed)
	assert.Equal(t, []entity.Holder{
		{Address: "A", Fraction: 0.4},
		{Address: "B", Fraction: 0},
	}, holders)
}

func TestHoldingsMap_LastWriteWins(t *testing.T) {
	holdings := HoldingsMap([]entity.Holder{
		{Address: "A", Fraction: 0.1},
		{Address: "B", Fraction: 0.2},
		{Address: "A", Fraction: 0.3},
		{Address: "C", Fraction: -1},
	})

	assert.Len(t, holdings, 3)
	assert.Equal(t, 0.3, holdings["A"])
	assert.Equal(t, 0.2, holdings["B"])
	assert.Equal(t, 0.0, holdings["C"])
}
