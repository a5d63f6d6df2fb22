package service

import "testing"

func TestAvailable(t *testing.T) {
	tests := []struct {
		name    string
		earned  int64
		claimed int64
		want    int64
	}{
		{"nothing earned", 0, 0, 0},
		{"no claims", 230, 0, 230},
		{"partial claim", 230, 50, 180},
		{"fully claimed", 100, 100, 0},
		{"diverged ledger clamps to zero", 10, 20, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Available(tt.earned, tt.claimed); got != tt.want {
				t.Fatalf("Available(%d, %d)=%d, want %d", tt.earned, tt.claimed, got, tt.want)
			}
		})
	}
}
