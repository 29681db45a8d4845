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
	"testing"
	"time"

	"github.com/lni/goutils/leaktest"
	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGroup returns the group and a closer the caller must defer inside
// the leak check, so every rank is shut down before goroutines are counted.
func newTestGroup(t *testing.T, procs int) ([]Proc, func()) {
	ps, err := NewLocalGroup(context.Background(), procs)
	require.NoError(t, err)
	return ps, func() {
		for _, p := range ps {
			require.NoError(t, p.Close())
		}
	}
}

func TestLocalGroupBadProcs(t *testing.T) {
	for _, procs := range []int{0, -1, 3, 6} {
		_, err := NewLocalGroup(context.Background(), procs)
		require.Error(t, err)
		assert.True(t, nserr.IsNSErrCode(err, nserr.ErrBadConfig), "procs=%d", procs)
	}
}

func TestLocalExchange(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ps, closer := newTestGroup(t, 2)
	defer closer()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]int64, 2)
	errs := make([]error, 2)
	data := [][]int64{{1, 2, 3}, {4, 5, 6}}
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			results[rank], errs[rank] = ps[rank].Exchange(ctx, 1-rank, data[rank])
		}(rank)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []int64{4, 5, 6}, results[0])
	assert.Equal(t, []int64{1, 2, 3}, results[1])
}

func TestLocalExchangeCopies(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ps, closer := newTestGroup(t, 2)
	defer closer()
	ctx := context.Background()

	sent := []int64{7, 8}
	type reply struct {
		recv []int64
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		recv, err := ps[1].Exchange(ctx, 0, []int64{1, 2})
		done <- reply{recv, err}
	}()
	recv0, err := ps[0].Exchange(ctx, 1, sent)
	require.NoError(t, err)

	// Mutating the caller's buffer after Exchange must not leak into the
	// partner's received copy.
	sent[0] = 99
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, []int64{7, 8}, r.recv)
	assert.Equal(t, []int64{1, 2}, recv0)
}

func TestLocalExchangeValidation(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ps, closer := newTestGroup(t, 2)
	defer closer()
	ctx := context.Background()

	_, err := ps[0].Exchange(ctx, 5, []int64{1})
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrRankOutOfRange))

	_, err = ps[0].Exchange(ctx, 0, []int64{1})
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrInvalidInput))
}

func TestLocalExchangeCanceled(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ps, closer := newTestGroup(t, 2)
	defer closer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Partner never shows up; the context is the only way out.
	_, err := ps[0].Exchange(ctx, 1, []int64{1})
	require.Error(t, err)
}

func TestLocalBarrier(t *testing.T) {
	defer leaktest.AfterTest(t)()

	const procs = 4
	const rounds = 8
	ps, closer := newTestGroup(t, procs)
	defer closer()
	ctx := context.Background()

	// A counter per round: the barrier is violated if a rank enters round
	// r+1 before all ranks finished round r.
	var mu sync.Mutex
	arrived := make([]int, rounds)

	var wg sync.WaitGroup
	errs := make([]error, procs)
	for rank := 0; rank < procs; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				mu.Lock()
				if r > 0 && arrived[r-1] != procs {
					errs[rank] = nserr.NewInternalError(ctx, "rank %d entered round %d early", rank, r)
					mu.Unlock()
					return
				}
				arrived[r]++
				mu.Unlock()
				if err := ps[rank].Barrier(ctx); err != nil {
					errs[rank] = err
					return
				}
			}
		}(rank)
	}
	wg.Wait()
	for rank, err := range errs {
		require.NoError(t, err, "rank=%d", rank)
	}
}

func TestLocalCloseUnblocks(t *testing.T) {
	defer leaktest.AfterTest(t)()

	ps, err := NewLocalGroup(context.Background(), 2)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		err := ps[1].Barrier(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ps[0].Close())

	err = <-done
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrTransportClosed))
	require.NoError(t, ps[1].Close())
}
