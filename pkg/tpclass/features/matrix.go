package features

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/textpresso/tpclass/pkg/tpclass/internalerr"
)

// Sparse is a compressed sparse row matrix of feature weights.
// It implements mat.Matrix so it can be handed to gonum routines directly.
type Sparse struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*Sparse)(nil)

// NewSparse builds a CSR matrix from raw arrays, validating their shape.
func NewSparse(rows, cols int, indptr, indices []int, data []float64) (*Sparse, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("negative dimensions %dx%d: %w", rows, cols, internalerr.ErrDimensionMismatch)
	}
	if len(indptr) != rows+1 || len(indices) != len(data) {
		return nil, fmt.Errorf("malformed csr arrays: %w", internalerr.ErrDimensionMismatch)
	}
	if indptr[0] != 0 || indptr[rows] != len(data) {
		return nil, fmt.Errorf("row pointers do not cover data: %w", internalerr.ErrDimensionMismatch)
	}
	for i := 0; i < rows; i++ {
		if indptr[i+1] < indptr[i] {
			return nil, fmt.Errorf("row pointers decrease at row %d: %w", i, internalerr.ErrDimensionMismatch)
		}
	}
	for _, j := range indices {
		if j < 0 || j >= cols {
			return nil, fmt.Errorf("column %d out of range: %w", j, internalerr.ErrDimensionMismatch)
		}
	}
	return &Sparse{rows: rows, cols: cols, indptr: indptr, indices: indices, data: data}, nil
}

// Dims returns the number of rows and columns.
func (s *Sparse) Dims() (r, c int) { return s.rows, s.cols }

// At returns the element at row i, column j.
func (s *Sparse) At(i, j int) float64 {
	if i < 0 || i >= s.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= s.cols {
		panic(mat.ErrColAccess)
	}
	lo, hi := s.indptr[i], s.indptr[i+1]
	k := lo + sort.SearchInts(s.indices[lo:hi], j)
	if k < hi && s.indices[k] == j {
		return s.data[k]
	}
	return 0
}

// T returns the implicit transpose.
func (s *Sparse) T() mat.Matrix { return mat.Transpose{Matrix: s} }

// NNZ returns the number of stored elements.
func (s *Sparse) NNZ() int { return len(s.data) }

// DoRowNonZero calls fn for every stored element of row i, in column order.
func (s *Sparse) DoRowNonZero(i int, fn func(i, j int, v float64)) {
	for k := s.indptr[i]; k < s.indptr[i+1]; k++ {
		fn(i, s.indices[k], s.data[k])
	}
}

// Raw returns the underlying CSR arrays. Callers must not modify them.
func (s *Sparse) Raw() (indptr, indices []int, data []float64) {
	return s.indptr, s.indices, s.data
}

// ToDense copies the matrix into a gonum dense matrix. An empty matrix
// yields an empty (zero-value) *mat.Dense.
func (s *Sparse) ToDense() *mat.Dense {
	if s.rows == 0 || s.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(s.rows, s.cols, nil)
	for i := 0; i < s.rows; i++ {
		for k := s.indptr[i]; k < s.indptr[i+1]; k++ {
			d.Set(i, s.indices[k], s.data[k])
		}
	}
	return d
}

// sparseBuilder accumulates rows of a CSR matrix.
type sparseBuilder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

func newSparseBuilder(cols, rowsHint int) *sparseBuilder {
	b := &sparseBuilder{cols: cols, indptr: make([]int, 1, rowsHint+1)}
	return b
}

// addRow appends a row given as column → value.
func (b *sparseBuilder) addRow(row map[int]float64) {
	cols := make([]int, 0, len(row))
	for j, v := range row {
		if v != 0 {
			cols = append(cols, j)
		}
	}
	sort.Ints(cols)
	for _, j := range cols {
		b.indices = append(b.indices, j)
		b.data = append(b.data, row[j])
	}
	b.indptr = append(b.indptr, len(b.data))
}

func (b *sparseBuilder) build() *Sparse {
	return &Sparse{
		rows:    len(b.indptr) - 1,
		cols:    b.cols,
		indptr:  b.indptr,
		indices: b.indices,
		data:    b.data,
	}
}

// ToDense returns m as a *mat.Dense, converting only when needed.
func ToDense(m mat.Matrix) *mat.Dense {
	switch m := m.(type) {
	case *mat.Dense:
		return m
	case *Sparse:
		return m.ToDense()
	}
	if r, c := m.Dims(); r == 0 || c == 0 {
		return &mat.Dense{}
	}
	return mat.DenseCopyOf(m)
}

// DoRowNonZero calls fn for every non-zero element of row i of m, using
// the cheapest access path the concrete type offers.
func DoRowNonZero(m mat.Matrix, i int, fn func(j int, v float64)) {
	switch m := m.(type) {
	case *Sparse:
		m.DoRowNonZero(i, func(_, j int, v float64) { fn(j, v) })
		return
	case mat.RawMatrixer:
		raw := m.RawMatrix()
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			if v != 0 {
				fn(j, v)
			}
		}
		return
	}
	_, c := m.Dims()
	for j := 0; j < c; j++ {
		if v := m.At(i, j); v != 0 {
			fn(j, v)
		}
	}
}
