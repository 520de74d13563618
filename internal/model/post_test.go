package model

import "testing"

func TestValidID(t *testing.T) {
	tests := []struct {
		id   int
		want bool
	}{
		{0, true},
		{1, true},
		{32767, true},
		{-32768, true},
		{32768, false},
		{-32769, false},
		{1 << 20, false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestTitleOrEmpty(t *testing.T) {
	if got := (Record{ID: 1}).TitleOrEmpty(); got != "" {
		t.Errorf("nil title: got %q", got)
	}
	title := "hello"
	if got := (Record{ID: 1, Title: &title}).TitleOrEmpty(); got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
}
