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

package network

// Round is one (k, j) pair of the bitonic exchange schedule. K is the phase
// width, J the comparison distance within the phase. Partner and direction
// are pure functions of (rank, K, J); the schedule itself depends only on the
// process count, never on data, so every rank enumerates identical rounds.
type Round struct {
	K int
	J int
}

// Schedule enumerates the rounds for a group of procs ranks: for every phase
// k = 2, 4, ..., procs, the distances j = k/2, k/4, ..., 1. The total is
// log2(P)*(log2(P)+1)/2 rounds regardless of input size.
func Schedule(procs int) []Round {
	var rounds []Round
	for k := 2; k <= procs; k <<= 1 {
		for j := k >> 1; j > 0; j >>= 1 {
			rounds = append(rounds, Round{K: k, J: j})
		}
	}
	return rounds
}

// Partner returns the rank exchanged with in this round.
func (r Round) Partner(rank int) int {
	return rank ^ r.J
}

// KeepLow reports whether rank retains the smaller half of the merged pair in
// this round. It reproduces, per partition, the keep-min/keep-max decision the
// single-element bitonic network would make for this position: ranks inside an
// ascending k-block keep low on the lower side of the pair, descending blocks
// invert it.
func (r Round) KeepLow(rank int) bool {
	ascendingBlock := rank&r.K == 0
	lowerPartner := rank&r.J == 0
	if ascendingBlock {
		return lowerPartner
	}
	return !lowerPartner
}
