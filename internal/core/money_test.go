package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmountInput(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"150000", "150000", true},
		{"250.5", "250.5", true},
		{"250,5", "250.5", true},
		{" 75000 ", "75000", true},
		{"0", "0", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1.000,50", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmountInput(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	if d, err := ParseAmount("100"); err != nil || !d.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("got %s, %v", d, err)
	}
	if d, err := ParseAmount("-12.50"); err != nil || !d.Equal(decimal.RequireFromString("-12.5")) {
		t.Fatalf("got %s, %v", d, err)
	}
	for _, bad := range []RawAmount{"", "n/a", "12,5", "NaN", "Infinity"} {
		if _, err := ParseAmount(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestRawAmountJSON(t *testing.T) {
	var row struct {
		A RawAmount `json:"a"`
		B RawAmount `json:"b"`
		C RawAmount `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 250.5, "b": "75000", "c": null}`), &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row.A != "250.5" || row.B != "75000" || row.C != "" {
		t.Fatalf("unexpected decode: %+v", row)
	}

	out, err := json.Marshal(struct {
		Ok  RawAmount `json:"ok"`
		Bad RawAmount `json:"bad"`
	}{Ok: "150000", Bad: "oops"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"ok":150000,"bad":"oops"}` {
		t.Fatalf("marshal = %s", out)
	}
}

func TestFormatIDR(t *testing.T) {
	cases := map[string]string{
		"225000":           "RP 225.000",
		"0":                "RP 0",
		"1350.5":           "RP 1.350,5",
		"9007199254740993": "RP 9.007.199.254.740.993",
		"-1500.25":         "RP -1.500,25",
		"0.125":            "RP 0,13",
	}
	for in, want := range cases {
		if got := FormatIDR(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatIDR(%s) = %q, want %q", in, got, want)
		}
	}
}
