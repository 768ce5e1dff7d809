package shopee_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/donaldgifford/stock-monitor/internal/shopee"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "micro units", raw: `550000`, want: "5.5"},
		{name: "large price", raw: `15000000000`, want: "150000"},
		{name: "string number", raw: `"2990000000"`, want: "29900"},
		{name: "zero", raw: `0`, want: "0"},
		{name: "negative", raw: `-100000`, want: "0"},
		{name: "null", raw: `null`, want: "0"},
		{name: "absent", raw: ``, want: "0"},
		{name: "non numeric", raw: `"abc"`, want: "0"},
		{name: "object", raw: `{"value":1}`, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := shopee.ParsePrice(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseStock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{name: "zero", raw: `0`, want: 0},
		{name: "one", raw: `1`, want: 1},
		{name: "many", raw: `1234`, want: 1234},
		{name: "float truncates", raw: `3.9`, want: 3},
		{name: "string number", raw: `"7"`, want: 7},
		{name: "negative clamps", raw: `-5`, want: 0},
		{name: "null", raw: `null`, want: 0},
		{name: "absent", raw: ``, want: 0},
		{name: "boolean", raw: `true`, want: 0},
		{name: "garbage string", raw: `"lots"`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shopee.ParseStock(json.RawMessage(tt.raw)))
		})
	}
}
