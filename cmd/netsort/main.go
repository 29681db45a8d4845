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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/netsort/netsort/pkg/cluster"
	"github.com/netsort/netsort/pkg/config"
	"github.com/netsort/netsort/pkg/logutil"
	"github.com/netsort/netsort/pkg/partition"
	"github.com/netsort/netsort/pkg/verify"
	"go.uber.org/zap"
)

var (
	version = "unknown"

	cfgFile     = flag.String("cfg", "", "toml configuration file")
	count       = flag.Int("n", 0, "number of elements to sort")
	procs       = flag.Int("procs", 0, "process count, a power of two (local mode)")
	seed        = flag.Int64("seed", 0, "input generator seed")
	rank        = flag.Int("rank", -1, "rank of this process (tcp mode)")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println("netsort version", version)
		os.Exit(0)
	}

	ctx := context.Background()
	cfg, err := loadConfig(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logutil.SetupNSLogger(&cfg.Log)
	if err := cfg.Validate(ctx); err != nil {
		logutil.Fatal("invalid configuration", zap.Error(err))
	}

	var res *cluster.Result
	switch cfg.Transport.Mode {
	case "tcp":
		res, err = cluster.RunTCP(ctx, cfg)
	default:
		res, err = cluster.Run(ctx, cfg)
	}
	if err != nil {
		logutil.Fatal("run failed", zap.Error(err))
	}
	if res == nil {
		// Non-zero tcp ranks hold no result.
		return
	}

	report(res)
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	var cfg *config.Config
	if *cfgFile != "" {
		loaded, err := config.ParseFromFile(ctx, *cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
	}

	// Command line flags win over the file.
	if *count > 0 {
		cfg.Count = *count
	}
	if *procs > 0 {
		cfg.Procs = *procs
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *rank >= 0 {
		cfg.Transport.Rank = *rank
	}
	cfg.SetDefaultValues()
	return cfg, nil
}

func report(res *cluster.Result) {
	n := res.Layout.N
	fmt.Printf("sorted %d elements (padded to %d) on %d processes in %v\n",
		n, res.Layout.TotalSize, res.Layout.Procs, res.Elapsed)

	r := verify.Verify(res.Values, n)
	if r.Sorted && verify.SentinelFree(res.Values, n) {
		fmt.Println("SORTED")
		return
	}

	fmt.Println("NOT SORTED")
	if !r.Sorted {
		fmt.Printf("order violated at index %d: %d > %d\n", r.Index, r.Prev, r.Next)
	}
	printSample(res.Values, n)
	os.Exit(1)
}

// printSample dumps a prefix of the result, marking padding sentinels, so a
// failed run can be inspected by eye.
func printSample(vs []int64, n int) {
	const limit = 64
	end := n
	if end > limit {
		end = limit
	}
	for i := 0; i < end && i < len(vs); i++ {
		if vs[i] == partition.Sentinel {
			fmt.Printf("  [%d] [PAD]\n", i)
			continue
		}
		fmt.Printf("  [%d] %d\n", i, vs[i])
	}
	if n > limit {
		fmt.Printf("  ... %d more\n", n-limit)
	}
}
