package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{
			name:     "empty existing",
			incoming: Label{Value: "injected", Source: "rerank"},
			want:     Label{Value: "injected", Source: "rerank"},
		},
		{
			name:     "empty incoming",
			existing: Label{Value: "linear", Source: "rank"},
			want:     Label{Value: "linear", Source: "rank"},
		},
		{
			name:     "accumulate",
			existing: Label{Value: "linear", Source: "rank"},
			incoming: Label{Value: "boosted", Source: "engine"},
			want:     Label{Value: "linear|boosted", Source: "rank,engine"},
		},
		{
			name:     "no duplicates",
			existing: Label{Value: "a|b", Source: "rank"},
			incoming: Label{Value: "b", Source: "rank"},
			want:     Label{Value: "a|b", Source: "rank"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeLabel(tt.existing, tt.incoming); got != tt.want {
				t.Errorf("MergeLabel() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
