package store

import "testing"

func TestChunkBoundsEvenlyDivides(t *testing.T) {
	got := chunkBounds(512, 256)
	want := []bounds{{0, 256}, {256, 512}}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChunkBoundsTrailingPartialChunk(t *testing.T) {
	got := chunkBounds(300, 256)
	want := []bounds{{0, 256}, {256, 300}}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChunkBoundsEmpty(t *testing.T) {
	if got := chunkBounds(0, 256); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestChunkBoundsSmallerThanOneChunk(t *testing.T) {
	got := chunkBounds(10, 256)
	want := []bounds{{0, 10}}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestJitteredDelayWithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := jitteredDelay()
		if d < minRetryDelay || d >= maxRetryDelay {
			t.Fatalf("jitteredDelay() = %v, want in [%v, %v)", d, minRetryDelay, maxRetryDelay)
		}
	}
}

func TestStringChunkSizeMatchesSpec(t *testing.T) {
	if StringChunkSize != 256 {
		t.Errorf("StringChunkSize = %d, want 256", StringChunkSize)
	}
}
