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

// Package verify checks the assembled result against the acceptance contract
// of the sort: the first n entries are non-decreasing and contain no padding
// sentinel.
package verify

import "github.com/netsort/netsort/pkg/partition"

// Result of one verification scan.
type Result struct {
	// Sorted is true when the first n entries are non-decreasing.
	Sorted bool
	// Index is the first offending position when not sorted; Prev and Next
	// are the two adjacent values vs[Index] > vs[Index+1].
	Index int
	Prev  int64
	Next  int64
}

// Verify scans the first n entries of the assembled sequence. Entries beyond
// n-1 are padding and ignored.
func Verify(vs []int64, n int) Result {
	if n > len(vs) {
		n = len(vs)
	}
	for i := 1; i < n; i++ {
		if vs[i-1] > vs[i] {
			return Result{Sorted: false, Index: i - 1, Prev: vs[i-1], Next: vs[i]}
		}
	}
	return Result{Sorted: true}
}

// SentinelFree reports whether no padding sentinel appears among the first n
// entries. Sentinels sort after every legitimate value, so a sentinel below
// index n means values were lost.
func SentinelFree(vs []int64, n int) bool {
	if n > len(vs) {
		n = len(vs)
	}
	for i := 0; i < n; i++ {
		if vs[i] == partition.Sentinel {
			return false
		}
	}
	return true
}
