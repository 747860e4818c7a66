package currency

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected MicroUSD
		wantErr  bool
	}{
		{name: "simple amount", input: "$116.20", expected: 116200000},
		{name: "amount with comma", input: "$1,234.56", expected: 1234560000},
		{name: "negative amount", input: "-$50.00", expected: -50000000},
		{name: "no symbol", input: "7", expected: 7000000},
		{name: "quoted", input: "'12.30'", expected: 12300000},
		{name: "zero", input: "$0.00", expected: 0},
		{name: "empty string", input: "", expected: 0},
		{name: "with whitespace", input: "  $99.99  ", expected: 99990000},
		{name: "sub-micro rounds", input: "0.0000015", expected: 2},
		{name: "invalid", input: "not a number", wantErr: true},
		{name: "symbol only", input: "$", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var fe *FormatError
				assert.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.input, fe.Input)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input    MicroUSD
		expected string
	}{
		{input: 0, expected: "$0.00"},
		{input: 1230000, expected: "$1.23"},
		{input: -1230000, expected: "-$1.23"},
		{input: -4000, expected: "$0.00"},
		{input: -6000, expected: "-$0.01"},
		{input: 2345000, expected: "$2.35"},
		{input: 1005000, expected: "$1.01"},
		{input: -1005000, expected: "-$1.00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.String())
		})
	}
}

func TestParseThenString_Canonicalizes(t *testing.T) {
	cases := map[string]string{
		"$1,234.5":  "$1234.50",
		"-$3.99":    "-$3.99",
		"3.990":     "$3.99",
		"'-$0.27'":  "-$0.27",
		"1000000":   "$1000000.00",
		"-0.000001": "$0.00",
	}
	for in, want := range cases {
		m, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m.String(), in)
	}
}

func TestEqual_IsFuzzy(t *testing.T) {
	a := MicroUSD(1000000)

	assert.True(t, a.Equal(1000049))
	assert.True(t, a.Equal(999951))
	assert.False(t, a.Equal(1000050))
	assert.False(t, a.Equal(999950))
}

func TestArithmetic(t *testing.T) {
	a := MustParse("$10.01")
	b := MustParse("$3.99")

	assert.Equal(t, MustParse("$14.00"), a.Add(b))
	assert.Equal(t, MustParse("$6.02"), a.Sub(b))
	assert.Equal(t, MustParse("-$10.01"), a.Neg())
	assert.Equal(t, MustParse("$30.03"), a.Mul(3))
	assert.Equal(t, MicroUSD(3336666), a.Div(3))
	assert.Equal(t, MustParse("$18.00"), Sum(a, b, MustParse("$4.00")))
}

func TestRoundToCent(t *testing.T) {
	assert.Equal(t, MustParse("$1.24"), MicroUSD(1235000).RoundToCent())
	assert.Equal(t, MustParse("$1.23"), MicroUSD(1234000).RoundToCent())
	assert.Equal(t, MustParse("-$2.50"), MustParse("-$2.50").RoundToCent())

	// Idempotent
	for _, m := range []MicroUSD{1234567, -7654321, 270000, 0, 99999999} {
		once := m.RoundToCent()
		assert.Equal(t, once, once.RoundToCent())
	}
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, MicroUSD(270000), FromFloat(0.27))
	assert.Equal(t, MicroUSD(-18000000), FromFloat(-18.0))
	assert.Equal(t, 0.27, FromFloat(0.27).ToFloat())
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Amount MicroUSD `json:"amount"`
	}

	data, err := json.Marshal(wrapper{Amount: MustParse("-$12.345678")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": -12.345678}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"amount": "$4.50"}`), &w))
	assert.Equal(t, MustParse("$4.50"), w.Amount)

	require.NoError(t, json.Unmarshal([]byte(`{"amount": -3.1}`), &w))
	assert.Equal(t, MustParse("-$3.10"), w.Amount)
}
