// Copyright 2025 Netsort Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package partition computes how the logical input is split across the
// process group and owns the sentinel padding that rounds the input up to a
// power-of-two total. Every rank derives the same Layout from the same
// (n, procs) inputs, so no negotiation is needed.
package partition

import (
	"context"
	"math"

	"github.com/netsort/netsort/pkg/common/nserr"
)

// Sentinel pads the logical input up to TotalSize. It sorts after every
// legitimate value, so padding always ends up at the tail of the result.
const Sentinel = int64(math.MaxInt64)

// Layout describes the agreed-upon partitioning of one run.
type Layout struct {
	// N is the requested logical element count.
	N int
	// Procs is the process count, a power of two.
	Procs int
	// TotalSize is the smallest power of two >= N that is a multiple of Procs.
	TotalSize int
	// LocalSize is TotalSize / Procs, identical on every rank.
	LocalSize int
}

// NewLayout validates (n, procs) and computes the padded sizes. A process
// count that is not a power of two is a fatal configuration error, detected
// here before any partition is allocated.
func NewLayout(ctx context.Context, n, procs int) (Layout, error) {
	if n <= 0 {
		return Layout{}, nserr.NewBadConfig(ctx, "element count %d must be positive", n)
	}
	if !IsPowerOfTwo(procs) {
		return Layout{}, nserr.NewBadConfig(ctx, "process count %d is not a power of two", procs)
	}
	total := NextPowerOfTwo(n)
	for total%procs != 0 {
		total <<= 1
	}
	return Layout{
		N:         n,
		Procs:     procs,
		TotalSize: total,
		LocalSize: total / procs,
	}, nil
}

// IsPowerOfTwo reports whether x is a positive power of two.
func IsPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Pad returns vs extended with sentinels up to l.TotalSize. The input slice
// is not mutated.
func Pad(vs []int64, l Layout) []int64 {
	padded := make([]int64, l.TotalSize)
	copy(padded, vs)
	for i := len(vs); i < l.TotalSize; i++ {
		padded[i] = Sentinel
	}
	return padded
}

// Scatter splits the padded global array into Procs partitions in rank
// order. Each partition is an independent copy: ranks never alias the
// global array.
func Scatter(global []int64, l Layout) [][]int64 {
	parts := make([][]int64, l.Procs)
	for rank := 0; rank < l.Procs; rank++ {
		part := make([]int64, l.LocalSize)
		copy(part, global[rank*l.LocalSize:(rank+1)*l.LocalSize])
		parts[rank] = part
	}
	return parts
}

// Gather concatenates partitions in rank order into a fresh global array.
func Gather(parts [][]int64) []int64 {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	global := make([]int64, 0, size)
	for _, p := range parts {
		global = append(global, p...)
	}
	return global
}
