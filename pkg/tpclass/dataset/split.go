package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// NewSplit shuffles docs with rng and divides them into a training
// partition holding percentage of the documents and a test partition
// holding the rest. Input order does not matter: documents are ordered by
// sequence before shuffling, so the result depends only on the documents
// and the rng state.
func NewSplit(docs []Document, percentage float64, rng *rand.Rand) (*Split, error) {
	if math.IsNaN(percentage) || percentage <= 0 || percentage > 1 {
		return nil, fmt.Errorf("training percentage %v not in (0,1]: %w", percentage, internalerr.ErrInvalidInput)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("split: %w", internalerr.ErrNoData)
	}

	pool := sortedBySeq(docs)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	k := TrainingSize(len(pool), percentage)
	return &Split{
		Training: &Partition{Documents: pool[:k:k]},
		Test:     &Partition{Documents: append([]Document(nil), pool[k:]...)},
	}, nil
}

// Resplit redistributes the union of both partitions. Feature matrices are
// not carried over.
func (s *Split) Resplit(percentage float64, rng *rand.Rand) (*Split, error) {
	return NewSplit(s.Documents(), percentage, rng)
}

// TrainingSize returns how many of n documents go to training. With at
// least two documents and percentage < 1 both sides get at least one.
func TrainingSize(n int, percentage float64) int {
	if percentage >= 1 || n < 2 {
		return n
	}
	k := int(math.Round(percentage * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}
