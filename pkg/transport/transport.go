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

// Package transport provides the exchange and barrier primitives the
// distributed sorting network runs on. Two implementations exist: a local one
// where every rank is a goroutine in the same runtime, and a TCP one where
// every rank is a separate process. Both honor the same blocking, symmetric
// semantics, so the network is agnostic to which is underneath.
package transport

import "context"

// Proc is one rank's handle on the process group. All methods block: an
// Exchange suspends until the partner's matching Exchange has transferred the
// data both ways, and a Barrier suspends until all ranks have reached it.
type Proc interface {
	// Rank returns this participant's zero-based rank.
	Rank() int
	// Procs returns the fixed group size, a power of two.
	Procs() int
	// Exchange sends data to partner and returns the partition received
	// from it. The received buffer is owned by the caller. A received
	// buffer whose length differs from len(data) is a protocol invariant
	// violation and returns ErrSizeNotMatch.
	Exchange(ctx context.Context, partner int, data []int64) ([]int64, error)
	// Barrier blocks until every rank in the group has entered it.
	Barrier(ctx context.Context) error
	// Close releases the rank's transport resources. Closing any rank of
	// a group makes pending and future calls on all its ranks fail.
	Close() error
}
