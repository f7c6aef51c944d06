package prefs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheusschuckar/look-pro/core"
)

func TestEncode_Shape(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s := NewState()
	if _, err := Apply(s, core.FacetCategory, "Shoes", 1, now); err != nil {
		t.Fatal(err)
	}

	raw, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"version", "cat", "store", "gender", "size", "price", "eta", "product"} {
		if _, ok := doc[k]; !ok {
			t.Errorf("encoded document missing %q: %s", k, raw)
		}
	}
	var cat map[string]struct {
		W float64 `json:"w"`
		T int64   `json:"t"`
	}
	if err := json.Unmarshal(doc["cat"], &cat); err != nil {
		t.Fatal(err)
	}
	if cat["shoes"].W != 1 || cat["shoes"].T != now.UnixMilli() {
		t.Errorf("cat.shoes = %+v", cat["shoes"])
	}
}

func TestDecode_V2(t *testing.T) {
	raw := []byte(`{"version":2,"cat":{"Shoes":{"w":2.5,"t":1700000000000}},"store":{"loja a":{"w":-1,"t":1700000000000,"d":1700000100000}}}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := doc.(*V2Document); !ok {
		t.Fatalf("Decode returned %T", doc)
	}
	s := Upgrade(doc)
	if got := s.Weight(core.FacetCategory, "shoes"); got != 2.5 {
		t.Errorf("cat.shoes = %v", got)
	}
	st, ok := s.Get(core.FacetStore, "loja a")
	if !ok {
		t.Fatal("store key missing")
	}
	if st.Weight != 0 {
		t.Errorf("negative weight not clamped: %v", st.Weight)
	}
	if st.DecayedAt.UnixMilli() != 1700000100000 {
		t.Errorf("DecayedAt = %v", st.DecayedAt)
	}
	for _, f := range core.AllFacets {
		if s.Facets[f] == nil {
			t.Errorf("facet %s missing after decode", f)
		}
	}
}

func TestDecode_Legacy(t *testing.T) {
	raw := []byte(`{"cat":{"Shoes":3,"bags":1},"store":{"Loja A":2},"unknown":{"x":1}}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	legacy, ok := doc.(*LegacyDocument)
	if !ok {
		t.Fatalf("Decode returned %T", doc)
	}
	if legacy.Version() != 1 {
		t.Errorf("Version() = %d", legacy.Version())
	}
	s := Upgrade(legacy)
	if got := s.Weight(core.FacetCategory, "shoes"); got != 3 {
		t.Errorf("cat.shoes = %v", got)
	}
	st, _ := s.Get(core.FacetStore, "loja a")
	if st.Weight != 2 || !st.LastUpdated.IsZero() {
		t.Errorf("store.loja a = %+v", st)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "not json", raw: `{{{`, want: ErrCorruptDocument},
		{name: "array", raw: `[1,2]`, want: ErrCorruptDocument},
		{name: "null", raw: `null`, want: ErrCorruptDocument},
		{name: "bad version type", raw: `{"version":"two"}`, want: ErrCorruptDocument},
		{name: "future version", raw: `{"version":3,"cat":{}}`, want: ErrUnsupportedVersion},
		{name: "bad v2 entry", raw: `{"version":2,"cat":{"a":"heavy"}}`, want: ErrCorruptDocument},
		{name: "bad legacy entry", raw: `{"cat":{"a":"heavy"}}`, want: ErrCorruptDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%s) err = %v, want %v", tt.raw, err, tt.want)
			}
		})
	}
}

func TestEncodeDecode_PreservesState(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s := NewState()
	_, _ = Apply(s, core.FacetProduct, core.ProductKey(42), 1.2, now)
	_, _ = Apply(s, core.FacetETA, "fast", 0.3, now)
	if _, err := Decay(s, 14, now.Add(24*time.Hour), 0); err != nil {
		t.Fatal(err)
	}

	raw, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	got := Upgrade(doc)
	for _, f := range []core.Facet{core.FacetProduct, core.FacetETA} {
		for _, k := range s.Keys(f) {
			want, _ := s.Get(f, k)
			have, ok := got.Get(f, k)
			if !ok || have.Weight != want.Weight || !have.LastUpdated.Equal(want.LastUpdated) || !have.DecayedAt.Equal(want.DecayedAt) {
				t.Errorf("%s/%s = %+v, want %+v", f, k, have, want)
			}
		}
	}
}
