package sha256

import "testing"

func TestFingerprint(t *testing.T) {
	t.Parallel()

	got := Fingerprint([]byte("hello world"))
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if again := Fingerprint([]byte("hello world")); again != got {
		t.Fatalf("expected deterministic digest, got %s vs %s", got, again)
	}
	if other := Fingerprint([]byte("hello there")); other == got {
		t.Fatalf("expected distinct digest for distinct content")
	}
}
