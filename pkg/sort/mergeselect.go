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

	"github.com/netsort/netsort/pkg/common/nserr"
)

// MergeSelect merges the two ascending runs a and b, both of length L, and
// returns the L smallest (keepLow) or L largest values. The result is
// ascending in both cases: the next exchange round assumes every partition is
// internally ascending regardless of which half it represents in the network.
func MergeSelect(ctx context.Context, a, b []int64, keepLow bool) ([]int64, error) {
	dst := make([]int64, len(a))
	if err := MergeSelectInto(ctx, dst, a, b, nil, keepLow); err != nil {
		return nil, err
	}
	return dst, nil
}

// MergeSelectInto is MergeSelect writing into dst, reusing scratch for the
// combined run when it has capacity for len(a)+len(b) elements. dst may alias
// a or b. Mismatched lengths indicate a defect in the partitioning logic, not
// a recoverable runtime condition.
func MergeSelectInto(ctx context.Context, dst, a, b, scratch []int64, keepLow bool) error {
	l := len(a)
	if len(b) != l {
		return nserr.NewSizeNotMatch(ctx, l, len(b))
	}
	if len(dst) != l {
		return nserr.NewSizeNotMatch(ctx, l, len(dst))
	}
	if cap(scratch) < 2*l {
		scratch = make([]int64, 2*l)
	}
	merged := scratch[:2*l]

	i, j, t := 0, 0, 0
	for i < l && j < l {
		if a[i] <= b[j] {
			merged[t] = a[i]
			i++
		} else {
			merged[t] = b[j]
			j++
		}
		t++
	}
	for i < l {
		merged[t] = a[i]
		i++
		t++
	}
	for j < l {
		merged[t] = b[j]
		j++
		t++
	}

	if keepLow {
		copy(dst, merged[:l])
	} else {
		copy(dst, merged[l:])
	}
	return nil
}
