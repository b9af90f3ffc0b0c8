package library

import "github.com/google/uuid"

// Batch is a bounded-size grouping of candidates scheduled as one job
// payload. Batches are pure data; execution belongs to the job queue.
type Batch struct {
	ID    string
	Items []Candidate
}

// CreateBatches partitions candidates into batches of at most size items,
// preserving the directory grouping produced by the scanner. An empty
// input yields zero batches.
func CreateBatches(candidates []Candidate, size int) []Batch {
	if size <= 0 {
		size = 1
	}

	var batches []Batch
	for start := 0; start < len(candidates); start += size {
		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		batches = append(batches, Batch{
			ID:    uuid.New().String(),
			Items: candidates[start:end],
		})
	}
	return batches
}
