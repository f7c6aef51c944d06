package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCandidate_UnmarshalSizes(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{name: "comma separated string", json: `{"id":1,"sizes":"p, m ,GG"}`, want: []string{"P", "M", "GG"}},
		{name: "array", json: `{"id":1,"sizes":["pp","g"]}`, want: []string{"PP", "G"}},
		{name: "array with commas", json: `{"id":1,"sizes":["p,m","g"]}`, want: []string{"P", "M", "G"}},
		{name: "null", json: `{"id":1,"sizes":null}`, want: []string{}},
		{name: "missing", json: `{"id":1}`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Candidate
			if err := json.Unmarshal([]byte(tt.json), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := c.SizeKeys()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SizeKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCandidate_UnmarshalRejectsNumberSizes(t *testing.T) {
	var c Candidate
	if err := json.Unmarshal([]byte(`{"id":1,"sizes":42}`), &c); err == nil {
		t.Fatal("expected error for numeric sizes")
	}
}

func TestCandidate_AllCategories(t *testing.T) {
	c := &Candidate{Category: " Shoes ", Categories: []string{"shoes", "Sneakers", "", "  "}}
	got := c.AllCategories()
	want := []string{"shoes", "sneakers"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllCategories() = %v, want %v", got, want)
	}
	if p := c.PrimaryCategory(); p != "shoes" {
		t.Errorf("PrimaryCategory() = %q, want shoes", p)
	}
	if p := (&Candidate{}).PrimaryCategory(); p != "" {
		t.Errorf("PrimaryCategory() on empty = %q", p)
	}
}

func TestCandidate_ETAPrefersRuntime(t *testing.T) {
	c := &Candidate{ETAText: "2h", ETATextRuntime: " 30 min "}
	if got := c.ETA(); got != "30 min" {
		t.Errorf("ETA() = %q", got)
	}
	c.ETATextRuntime = ""
	if got := c.ETA(); got != "2h" {
		t.Errorf("ETA() = %q", got)
	}
}

func TestCandidate_PriceValue(t *testing.T) {
	zero, neg, ok := 0.0, -3.0, 129.9
	tests := []struct {
		name   string
		price  *float64
		wantOK bool
	}{
		{name: "missing", price: nil},
		{name: "zero", price: &zero},
		{name: "negative", price: &neg},
		{name: "positive", price: &ok, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := (&Candidate{Price: tt.price}).PriceValue()
			if got != tt.wantOK {
				t.Errorf("PriceValue() ok = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestParseFacet(t *testing.T) {
	tests := []struct {
		in   string
		want Facet
		ok   bool
	}{
		{"cat", FacetCategory, true},
		{"Category", FacetCategory, true},
		{"priceBucket", FacetPrice, true},
		{"etaBucket", FacetETA, true},
		{"product", FacetProduct, true},
		{"color", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFacet(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseFacet(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	wrapped := wrap(ErrStoreNotFound)
	if !IsStoreNotFound(wrapped) {
		t.Error("IsStoreNotFound should see through wrapping")
	}
	if IsStoreNotSupported(wrapped) {
		t.Error("IsStoreNotSupported should be false")
	}
}

type wrapErr struct{ err error }

func (w wrapErr) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapErr) Unwrap() error { return w.err }

func wrap(err error) error { return wrapErr{err: err} }
