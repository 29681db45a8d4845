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

// Package sort provides the purely local primitives of the distributed sort:
// the in-place bitonic presort each rank applies to its own partition and the
// pairwise merge-select applied after every exchange round.
package sort

// Sort sorts vs in place, ascending when asc is true. It is the standard
// recursive bitonic compare-exchange routine; len(vs) must be a power of two,
// which partition.Layout guarantees for every partition.
func Sort(vs []int64, asc bool) {
	sortRange(vs, 0, len(vs), asc)
}

func sortRange(vs []int64, low, cnt int, asc bool) {
	if cnt <= 1 {
		return
	}
	half := cnt / 2
	sortRange(vs, low, half, true)
	sortRange(vs, low+half, half, false)
	mergeRange(vs, low, cnt, asc)
}

// mergeRange turns the bitonic run vs[low:low+cnt] into a monotonic one.
func mergeRange(vs []int64, low, cnt int, asc bool) {
	if cnt <= 1 {
		return
	}
	half := cnt / 2
	compareExchange(vs, low, half, asc)
	mergeRange(vs, low, half, asc)
	mergeRange(vs, low+half, half, asc)
}

func compareExchange(vs []int64, low, half int, asc bool) {
	for i := low; i < low+half; i++ {
		if (vs[i] > vs[i+half]) == asc {
			vs[i], vs[i+half] = vs[i+half], vs[i]
		}
	}
}
