package ai

import "testing"

func TestParseDetectedItems(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"plain array", `[{"name":"bottle","confidence":0.9,"category":"plastic","tokenValue":5}]`, 1, false},
		{"code fence", "```json\n[{\"name\":\"can\",\"confidence\":0.8,\"category\":\"metal\",\"tokenValue\":6}]\n```", 1, false},
		{"surrounding prose", `Here are the items: [{"name":"jar","confidence":0.7,"category":"glass","tokenValue":7}] Done.`, 1, false},
		{"empty array", `[]`, 0, false},
		{"no array", "I could not find any items.", 0, true},
		{"invalid json", `[{"name":}]`, 0, true},
		{"drops nameless items", `[{"name":"","confidence":0.9,"category":"paper","tokenValue":3},{"name":"box","confidence":0.9,"category":"paper","tokenValue":3}]`, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDetectedItems(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.want {
				t.Fatalf("got %d items, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseDetectedItemsNormalizes(t *testing.T) {
	items, err := ParseDetectedItems(`[{"name":"mystery","confidence":1.4,"category":"unknown","tokenValue":50}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	it := items[0]
	if it.Category != "other" {
		t.Errorf("category=%q, want other", it.Category)
	}
	if it.Confidence != 1 {
		t.Errorf("confidence=%v, want 1", it.Confidence)
	}
	if it.TokenValue != 10 {
		t.Errorf("tokenValue=%d, want 10", it.TokenValue)
	}
}
