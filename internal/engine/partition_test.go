package engine

import "testing"

func TestChunkSizeTiers(t *testing.T) {
	tests := []struct {
		name      string
		totalSize int64
		want      int64
	}{
		{"tiny file", 1, 512 * 1024},
		{"just under 100MB", 100*1024*1024 - 1, 512 * 1024},
		{"exactly 100MB", 100 * 1024 * 1024, 4 * 1024 * 1024},
		{"just under 1GB", 1024*1024*1024 - 1, 4 * 1024 * 1024},
		{"exactly 1GB", 1024 * 1024 * 1024, 16 * 1024 * 1024},
		{"just under 10GB", 10*1024*1024*1024 - 1, 16 * 1024 * 1024},
		{"exactly 10GB", 10 * 1024 * 1024 * 1024, 64 * 1024 * 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkSize(tt.totalSize); got != tt.want {
				t.Errorf("ChunkSize(%d) = %d, want %d", tt.totalSize, got, tt.want)
			}
		})
	}
}

func TestPartitionChunkCount(t *testing.T) {
	// 100 MiB is the first size in the 4 MiB tier: exactly 25 chunks.
	p := Partition(100 * 1024 * 1024)
	if p.ChunkSize != 4*1024*1024 {
		t.Fatalf("chunk size = %d, want %d", p.ChunkSize, 4*1024*1024)
	}
	if p.TotalChunks != 25 {
		t.Fatalf("total chunks = %d, want 25", p.TotalChunks)
	}

	// One byte over a chunk boundary adds one more chunk.
	p = Partition(512*1024 + 1)
	if p.TotalChunks != 2 {
		t.Fatalf("total chunks = %d, want 2", p.TotalChunks)
	}

	p = Partition(1)
	if p.TotalChunks != 1 {
		t.Fatalf("total chunks = %d, want 1", p.TotalChunks)
	}
}

func TestPartitionRanges(t *testing.T) {
	totalSize := int64(512*1024*3 + 100)
	p := Partition(totalSize)
	if p.TotalChunks != 4 {
		t.Fatalf("total chunks = %d, want 4", p.TotalChunks)
	}

	var covered int64
	var prevEnd int64 = -1
	for i := int64(0); i < p.TotalChunks; i++ {
		start, end, expected := p.Range(i)
		if start != prevEnd+1 {
			t.Errorf("chunk %d starts at %d, want %d", i, start, prevEnd+1)
		}
		if expected != end-start+1 {
			t.Errorf("chunk %d expected size %d does not match range [%d, %d]", i, expected, start, end)
		}
		covered += expected
		prevEnd = end
	}
	if covered != totalSize {
		t.Errorf("chunks cover %d bytes, want %d", covered, totalSize)
	}

	// Only the last chunk is short.
	_, _, lastExpected := p.Range(p.TotalChunks - 1)
	if lastExpected != 100 {
		t.Errorf("last chunk size = %d, want 100", lastExpected)
	}
}
