package media

import "testing"

func TestMaxInt(t *testing.T) {
	if got := maxInt(1, 0); got != 1 {
		t.Fatalf("maxInt(1,0) = %d, want 1", got)
	}
	if got := maxInt(1, 5); got != 5 {
		t.Fatalf("maxInt(1,5) = %d, want 5", got)
	}
	if got := maxInt(3, 3); got != 3 {
		t.Fatalf("maxInt(3,3) = %d, want 3", got)
	}
}
