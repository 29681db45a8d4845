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

// Package network runs the distributed bitonic sorting network: the fixed
// sequence of pairwise partition exchanges and merge-selects that turns P
// independently sorted partitions into one globally sorted sequence, without
// any rank ever holding more than its own partition plus one received copy.
package network

import (
	"context"

	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/netsort/netsort/pkg/logutil"
	"github.com/netsort/netsort/pkg/sort"
	"github.com/netsort/netsort/pkg/transport"
	"go.uber.org/zap"
)

// Run executes every exchange round of the network on one rank, mutating
// local in place. local must already be sorted ascending; on return of all
// ranks, concatenating partitions in rank order yields the sorted sequence.
//
// Each rank's partition is internally ascending before and after every round.
// The barrier after each round keeps the group in lockstep: the next round's
// partner computation assumes every rank has finished the current one.
func Run(ctx context.Context, proc transport.Proc, local []int64) error {
	rank := proc.Rank()
	scratch := make([]int64, 2*len(local))

	for _, r := range Schedule(proc.Procs()) {
		partner := r.Partner(rank)
		keepLow := r.KeepLow(rank)

		recv, err := proc.Exchange(ctx, partner, local)
		if err != nil {
			logutil.Error("exchange failed",
				zap.Int("rank", rank), zap.Int("partner", partner),
				zap.Int("k", r.K), zap.Int("j", r.J), zap.Error(err))
			return err
		}
		if len(recv) != len(local) {
			return nserr.NewSizeNotMatch(ctx, len(local), len(recv))
		}

		if err := sort.MergeSelectInto(ctx, local, local, recv, scratch, keepLow); err != nil {
			return err
		}

		if err := proc.Barrier(ctx); err != nil {
			return err
		}
	}
	return nil
}
