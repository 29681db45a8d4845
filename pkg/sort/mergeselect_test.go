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
	"context"
	"math/rand"
	"testing"

	"github.com/netsort/netsort/pkg/common/nserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSelect(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		a, b    []int64
		keepLow bool
		want    []int64
	}{
		{"low", []int64{1, 3, 5, 8}, []int64{2, 4, 7, 9}, true, []int64{1, 2, 3, 4}},
		{"high", []int64{1, 3, 5, 8}, []int64{2, 4, 7, 9}, false, []int64{5, 7, 8, 9}},
		{"disjoint_low", []int64{1, 2}, []int64{3, 4}, true, []int64{1, 2}},
		{"disjoint_high", []int64{1, 2}, []int64{3, 4}, false, []int64{3, 4}},
		{"ties", []int64{2, 2}, []int64{2, 2}, false, []int64{2, 2}},
		{"single", []int64{5}, []int64{3}, true, []int64{3}},
		{"empty", []int64{}, []int64{}, true, []int64{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := MergeSelect(ctx, c.a, c.b, c.keepLow)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

// The low and high halves together are a permutation of the union, and each
// half is ascending on its own.
func TestMergeSelectSplitsUnion(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(99))
	for iter := 0; iter < 50; iter++ {
		l := 1 << (1 + rng.Intn(8))
		a := randomValues(rng, l)
		b := randomValues(rng, l)
		Sort(a, true)
		Sort(b, true)

		low, err := MergeSelect(ctx, a, b, true)
		require.NoError(t, err)
		high, err := MergeSelect(ctx, a, b, false)
		require.NoError(t, err)

		union := append(append([]int64{}, a...), b...)
		Sort(union, true)
		assert.Equal(t, union[:l], low)
		assert.Equal(t, union[l:], high)
	}
}

func TestMergeSelectIntoAliasing(t *testing.T) {
	ctx := context.Background()
	a := []int64{1, 4, 6, 9}
	b := []int64{2, 3, 7, 8}
	scratch := make([]int64, 8)

	require.NoError(t, MergeSelectInto(ctx, a, a, b, scratch, true))
	assert.Equal(t, []int64{1, 2, 3, 4}, a)

	a = []int64{1, 4, 6, 9}
	require.NoError(t, MergeSelectInto(ctx, a, a, b, scratch, false))
	assert.Equal(t, []int64{6, 7, 8, 9}, a)
}

func TestMergeSelectSizeNotMatch(t *testing.T) {
	ctx := context.Background()
	_, err := MergeSelect(ctx, []int64{1, 2}, []int64{1}, true)
	require.Error(t, err)
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrSizeNotMatch))

	err = MergeSelectInto(ctx, make([]int64, 3), []int64{1, 2}, []int64{3, 4}, nil, true)
	require.Error(t, err)
	assert.True(t, nserr.IsNSErrCode(err, nserr.ErrSizeNotMatch))
}
