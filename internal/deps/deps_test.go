package deps

import "testing"

func TestResolveFromPATH(t *testing.T) {
	resolved, err := Resolve("", "sh")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected non-empty resolved path")
	}
}

func TestResolveUnknownBinary(t *testing.T) {
	if _, err := Resolve("", "engram-does-not-exist-binary"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestCheckReportsStatus(t *testing.T) {
	status := Check("shell", "", "sh")
	if !status.Available {
		t.Fatalf("expected sh to be available: %+v", status)
	}

	status = Check("missing", "", "engram-does-not-exist-binary")
	if status.Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message for unavailable binary")
	}
}
