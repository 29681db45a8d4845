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

package transport

import (
	"context"
	"sync"

	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/netsort/netsort/pkg/partition"
)

// localGroup wires P goroutine ranks together through a matrix of buffered
// channels, one per directed pair. With the lockstep round schedule there is
// at most one in-flight partition per direction, so capacity 1 lets both
// sides of a pair send before either receives, which is what makes the
// symmetric Exchange deadlock-free.
type localGroup struct {
	procs     int
	mail      [][]chan []int64
	bar       *cyclicBarrier
	closed    chan struct{}
	closeOnce sync.Once
}

type localProc struct {
	rank int
	g    *localGroup
}

// NewLocalGroup creates all P rank handles of an in-process group. procs must
// be a power of two.
func NewLocalGroup(ctx context.Context, procs int) ([]Proc, error) {
	if !partition.IsPowerOfTwo(procs) {
		return nil, nserr.NewBadConfig(ctx, "process count %d is not a power of two", procs)
	}
	g := &localGroup{
		procs:  procs,
		mail:   make([][]chan []int64, procs),
		bar:    newCyclicBarrier(procs),
		closed: make(chan struct{}),
	}
	for from := 0; from < procs; from++ {
		g.mail[from] = make([]chan []int64, procs)
		for to := 0; to < procs; to++ {
			g.mail[from][to] = make(chan []int64, 1)
		}
	}
	ps := make([]Proc, procs)
	for rank := 0; rank < procs; rank++ {
		ps[rank] = &localProc{rank: rank, g: g}
	}
	return ps, nil
}

func (p *localProc) Rank() int  { return p.rank }
func (p *localProc) Procs() int { return p.g.procs }

func (p *localProc) Exchange(ctx context.Context, partner int, data []int64) ([]int64, error) {
	if partner < 0 || partner >= p.g.procs {
		return nil, nserr.NewRankOutOfRange(ctx, partner, p.g.procs)
	}
	if partner == p.rank {
		return nil, nserr.NewInvalidInput(ctx, "rank %d exchanging with itself", p.rank)
	}

	// Copy before handing off: the caller keeps mutating its partition in
	// later rounds, and no rank may ever alias another rank's memory.
	out := append([]int64(nil), data...)
	select {
	case p.g.mail[p.rank][partner] <- out:
	case <-ctx.Done():
		return nil, nserr.ConvertGoError(ctx, ctx.Err())
	case <-p.g.closed:
		return nil, nserr.NewTransportClosed(ctx)
	}

	select {
	case recv := <-p.g.mail[partner][p.rank]:
		if len(recv) != len(data) {
			return nil, nserr.NewSizeNotMatch(ctx, len(data), len(recv))
		}
		return recv, nil
	case <-ctx.Done():
		return nil, nserr.ConvertGoError(ctx, ctx.Err())
	case <-p.g.closed:
		return nil, nserr.NewTransportClosed(ctx)
	}
}

func (p *localProc) Barrier(ctx context.Context) error {
	return p.g.bar.await(ctx, p.g.closed)
}

func (p *localProc) Close() error {
	p.g.closeOnce.Do(func() {
		close(p.g.closed)
	})
	return nil
}

// cyclicBarrier is reusable: each generation gets its own release channel, so
// a rank racing into the next round can never be released early.
type cyclicBarrier struct {
	mu      sync.Mutex
	size    int
	arrived int
	release chan struct{}
}

func newCyclicBarrier(size int) *cyclicBarrier {
	return &cyclicBarrier{size: size, release: make(chan struct{})}
}

func (b *cyclicBarrier) await(ctx context.Context, closed chan struct{}) error {
	b.mu.Lock()
	release := b.release
	b.arrived++
	if b.arrived == b.size {
		b.arrived = 0
		b.release = make(chan struct{})
		b.mu.Unlock()
		close(release)
		return nil
	}
	b.mu.Unlock()

	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return nserr.ConvertGoError(ctx, ctx.Err())
	case <-closed:
		return nserr.NewTransportClosed(ctx)
	}
}
