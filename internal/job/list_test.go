package job

import (
	"reflect"
	"testing"
)

func TestListRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		items []string
	}{
		{name: "single", items: []string{"CV"}},
		{name: "several", items: []string{"CV", "Cover Letter", "Job Market Paper"}},
		{name: "inner spaces", items: []string{"Research Statement", "Three reference letters"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := JoinList(tt.items)
			if got := SplitList(joined); !reflect.DeepEqual(got, tt.items) {
				t.Fatalf("split(join) = %v, want %v", got, tt.items)
			}
			if again := JoinList(SplitList(joined)); again != joined {
				t.Fatalf("join(split(%q)) = %q", joined, again)
			}
		})
	}
}

func TestSplitListEmpty(t *testing.T) {
	if got := SplitList("  "); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := JoinList([]string{" ", ""}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestSplitListNormalizesWhitespace(t *testing.T) {
	tests := []struct {
		input string
		items []string
		canon string
	}{
		{input: " a, b", items: []string{"a", "b"}, canon: "a, b"},
		{input: "CV ,  Cover Letter , ", items: []string{"CV", "Cover Letter"}, canon: "CV, Cover Letter"},
		{input: "a, , b", items: []string{"a", "b"}, canon: "a, b"},
	}

	for _, tt := range tests {
		got := SplitList(tt.input)
		if !reflect.DeepEqual(got, tt.items) {
			t.Fatalf("SplitList(%q) = %v, want %v", tt.input, got, tt.items)
		}
		canon := JoinList(got)
		if canon != tt.canon {
			t.Fatalf("JoinList(SplitList(%q)) = %q, want %q", tt.input, canon, tt.canon)
		}
		if again := JoinList(SplitList(canon)); again != canon {
			t.Fatalf("canonical form %q is not stable: %q", canon, again)
		}
	}
}

func TestParseLocalDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "2025-11-15", want: "2025-11-15", ok: true},
		{input: "11/15/2025", want: "2025-11-15", ok: true},
		{input: "15/11/2025", want: "2025-11-15", ok: true},
		{input: "November 15, 2025", want: "2025-11-15", ok: true},
		{input: "Nov 15, 2025", want: "2025-11-15", ok: true},
		{input: "open until filled", ok: false},
		{input: "2025-02-30", ok: false},
	}

	for _, tt := range tests {
		got, ok := ParseLocalDate(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseLocalDate(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestColumnsOrder(t *testing.T) {
	cols := Columns()
	if cols[0] != FieldJobID || cols[len(cols)-1] != FieldLastUpdated {
		t.Fatalf("unexpected column bounds: %v", cols)
	}
	if len(cols) != len(Schema)+2 {
		t.Fatalf("expected %d columns, got %d", len(Schema)+2, len(cols))
	}
}
