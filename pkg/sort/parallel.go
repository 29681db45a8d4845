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

package sort

import (
	"runtime"
	"sync"

	"github.com/netsort/netsort/pkg/logutil"
	"github.com/panjf2000/ants/v2"
)

// parallelGrain is the range size below which recursion stays sequential.
const parallelGrain = 1 << 13

// ParallelSorter presorts a partition using a shared worker pool. This is the
// shared-memory analogue of the sequential Sort: same network of
// compare-exchanges, with independent halves sorted concurrently. It only
// speeds up one rank's own presort and has no interaction with the exchange
// network's correctness.
type ParallelSorter struct {
	pool *ants.Pool
}

// NewParallelSorter creates a sorter backed by a pool of at most workers
// goroutines. workers <= 0 means one per CPU.
func NewParallelSorter(workers int) (*ParallelSorter, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// Nonblocking: when the pool is saturated the recursion continues
	// inline on the submitting goroutine instead of queueing, so a deep
	// recursion can never wait on workers it has itself occupied.
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v interface{}) {
			logutil.Errorf("parallel sort worker panic: %v", v)
		}))
	if err != nil {
		return nil, err
	}
	return &ParallelSorter{pool: pool}, nil
}

// Sort sorts vs in place, ascending when asc is true. len(vs) must be a
// power of two.
func (s *ParallelSorter) Sort(vs []int64, asc bool) {
	s.sortRange(vs, 0, len(vs), asc)
}

// Close releases the worker pool. The sorter must not be used afterwards.
func (s *ParallelSorter) Close() {
	s.pool.Release()
}

func (s *ParallelSorter) sortRange(vs []int64, low, cnt int, asc bool) {
	if cnt <= 1 {
		return
	}
	if cnt <= parallelGrain {
		sortRange(vs, low, cnt, asc)
		return
	}
	half := cnt / 2

	var wg sync.WaitGroup
	wg.Add(1)
	first := func() {
		defer wg.Done()
		s.sortRange(vs, low, half, true)
	}
	if err := s.pool.Submit(first); err != nil {
		first()
	}
	s.sortRange(vs, low+half, half, false)
	wg.Wait()

	s.mergeRange(vs, low, cnt, asc)
}

func (s *ParallelSorter) mergeRange(vs []int64, low, cnt int, asc bool) {
	if cnt <= 1 {
		return
	}
	if cnt <= parallelGrain {
		mergeRange(vs, low, cnt, asc)
		return
	}
	half := cnt / 2
	compareExchange(vs, low, half, asc)

	var wg sync.WaitGroup
	wg.Add(1)
	first := func() {
		defer wg.Done()
		s.mergeRange(vs, low, half, asc)
	}
	if err := s.pool.Submit(first); err != nil {
		first()
	}
	s.mergeRange(vs, low+half, half, asc)
	wg.Wait()
}
