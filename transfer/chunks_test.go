package transfer

import "testing"

func TestCeilMB(t *testing.T) {
	cases := []struct {
		size int64
		want int64
	}{
		{0, 0},
		{1, 1},
		{bytesPerMB, 1},
		{bytesPerMB + 1, 2},
		{2 * bytesPerMB, 2},
	}
	for _, c := range cases {
		if got := ceilMB(c.size); got != c.want {
			t.Errorf("ceilMB(%d) = %d, want %d", c.size, got, c.want)
		}
	}
}

func TestChunkByteRange(t *testing.T) {
	fileSize := int64(2*bytesPerMB + 512)
	chunkSize := int64(bytesPerMB)

	start, end, ok := chunkByteRange(fileSize, chunkSize, 0)
	if !ok || start != 0 || end != bytesPerMB {
		t.Fatalf("chunk 0: got (%d,%d,%v)", start, end, ok)
	}
	start, end, ok = chunkByteRange(fileSize, chunkSize, 1)
	if !ok || start != bytesPerMB || end != 2*bytesPerMB {
		t.Fatalf("chunk 1: got (%d,%d,%v)", start, end, ok)
	}
	start, end, ok = chunkByteRange(fileSize, chunkSize, 2)
	if !ok || start != 2*bytesPerMB || end != fileSize {
		t.Fatalf("chunk 2 (short final chunk): got (%d,%d,%v)", start, end, ok)
	}
	_, _, ok = chunkByteRange(fileSize, chunkSize, 3)
	if ok {
		t.Fatal("expected chunk 3 to be past EOF")
	}
}
