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

// Package cluster assembles a full sorting run from the pieces: input
// generation, partitioning, per-rank presort, the exchange network and the
// final gather. It drives either an in-process group of goroutine ranks or
// one rank of a TCP process group.
package cluster

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/netsort/netsort/pkg/config"
	"github.com/netsort/netsort/pkg/logutil"
	"github.com/netsort/netsort/pkg/network"
	"github.com/netsort/netsort/pkg/partition"
	"github.com/netsort/netsort/pkg/sort"
	"github.com/netsort/netsort/pkg/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result of a completed run.
type Result struct {
	// Values is the gathered global array, padding included. The logical
	// result is Values[:Layout.N].
	Values []int64
	// Layout the run was partitioned with.
	Layout partition.Layout
	// Elapsed covers presort through gather, excluding input generation.
	Elapsed time.Duration
}

// GenerateInput produces the deterministic pseudo random input for a seed.
// Values stay below the padding sentinel.
func GenerateInput(seed int64, n int) []int64 {
	rng := rand.New(rand.NewSource(seed))
	vs := make([]int64, n)
	for i := range vs {
		vs[i] = rng.Int63n(math.MaxInt64)
	}
	return vs
}

// presort sorts one rank's partition ascending before the network runs.
func presort(part []int64, workers int) error {
	if workers == 1 {
		sort.Sort(part, true)
		return nil
	}
	s, err := sort.NewParallelSorter(workers)
	if err != nil {
		return err
	}
	defer s.Close()
	s.Sort(part, true)
	return nil
}

// Run executes a complete local-mode run: all ranks are goroutines sharing
// this process. The first rank error cancels the whole group.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	layout, err := partition.NewLayout(ctx, cfg.Count, cfg.Procs)
	if err != nil {
		return nil, err
	}
	logutil.Info("starting local run",
		zap.Int("count", layout.N), zap.Int("procs", layout.Procs),
		zap.Int("total", layout.TotalSize), zap.Int("local", layout.LocalSize))

	input := GenerateInput(cfg.Seed, layout.N)
	parts := partition.Scatter(partition.Pad(input, layout), layout)

	procs, err := transport.NewLocalGroup(ctx, layout.Procs)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, p := range procs {
			if cerr := p.Close(); cerr != nil {
				logutil.Error("close rank failed", zap.Int("rank", p.Rank()), zap.Error(cerr))
			}
		}
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for rank, proc := range procs {
		rank, proc := rank, proc
		g.Go(func() error {
			if err := presort(parts[rank], cfg.SortWorkers); err != nil {
				return err
			}
			return network.Run(gctx, proc, parts[rank])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		Values:  partition.Gather(parts),
		Layout:  layout,
		Elapsed: time.Since(start),
	}, nil
}

// RunTCP executes one rank of a tcp-mode run. Rank 0 generates and scatters
// the input, runs its own rank of the network, then gathers; other ranks
// return a nil Result.
func RunTCP(ctx context.Context, cfg *config.Config) (*Result, error) {
	rank := cfg.Transport.Rank
	layout, err := partition.NewLayout(ctx, cfg.Count, len(cfg.Transport.Addresses))
	if err != nil {
		return nil, err
	}
	logutil.Info("starting tcp run",
		zap.Int("rank", rank), zap.Int("count", layout.N),
		zap.Int("procs", layout.Procs), zap.Int("local", layout.LocalSize))

	proc, err := transport.NewTCPProc(ctx, transport.TCPConfig{
		Rank:      rank,
		Addresses: cfg.Transport.Addresses,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := proc.Close(); cerr != nil {
			logutil.Error("close rank failed", zap.Int("rank", rank), zap.Error(cerr))
		}
	}()

	var parts [][]int64
	if rank == 0 {
		input := GenerateInput(cfg.Seed, layout.N)
		parts = partition.Scatter(partition.Pad(input, layout), layout)
	}
	local, err := proc.Scatter(ctx, parts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := presort(local, cfg.SortWorkers); err != nil {
		return nil, err
	}
	if err := network.Run(ctx, proc, local); err != nil {
		return nil, err
	}

	gathered, err := proc.Gather(ctx, local)
	if err != nil {
		return nil, err
	}
	if rank != 0 {
		return nil, nil
	}
	return &Result{
		Values:  partition.Gather(gathered),
		Layout:  layout,
		Elapsed: time.Since(start),
	}, nil
}
