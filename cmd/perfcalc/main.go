// cmd/perfcalc/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// perfcalc runs aviation performance charts from the command line:
//
//	perfcalc -var outsideAirTemperature=15:"degrees celsius" -var pressureAltitude=5000:feet \
//	    -var weight=1000:kilograms -chart da40/cruise.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mmp/perfchart/chart"
	"github.com/mmp/perfchart/log"
	"github.com/mmp/perfchart/perf"
	"github.com/mmp/perfchart/util"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	chartList  = flag.String("chart", "", "comma-separated list of charts to run; charts may also be given as arguments")
	baseDir    = flag.String("base", "", "directory or URL that chart locations are relative to")
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	cacheDir   = flag.String("cachedir", "", "directory for cached projects (default: user cache directory)")
	noCache    = flag.Bool("nocache", false, "don't cache projects on disk")
	lint       = flag.Bool("lint", false, "check the charts and print their inputs and outputs")
	dump       = flag.Bool("dump", false, "dump calculation results in detail to stderr")
	cpuprofile = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
	vars       = make(varsFlag)
)

func init() {
	units := util.MapSlice(perf.Units(), func(u perf.Unit) string { return string(u) })
	flag.Var(vars, "var", "input variable as name=value:unit (may be repeated); units: "+strings.Join(units, ", "))
}

// varsFlag collects repeated -var flags.
type varsFlag perf.Variables

func (v varsFlag) String() string {
	var s []string
	for _, name := range util.SortedMapKeys(v) {
		s = append(s, name+"="+v[name].String())
	}
	return strings.Join(s, ",")
}

func (v varsFlag) Set(s string) error {
	name, val, err := perf.ParseVariable(s)
	if err != nil {
		return err
	}
	v[name] = val
	return nil
}

type result struct {
	Src         string            `json:"src"`
	Calculation *perf.Calculation `json:"calculation"`
}

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)

	var srcs []string
	if *chartList != "" {
		srcs = strings.Split(*chartList, ",")
	}
	srcs = append(srcs, flag.Args()...)
	if len(srcs) == 0 {
		fmt.Fprintln(os.Stderr, "perfcalc: no charts specified")
		flag.Usage()
		os.Exit(2)
	}

	profiler, err := util.StartProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = run(srcs, lg)
	if perr := profiler.Stop(); perr != nil {
		lg.Errorf("%v", perr)
	}
	if err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(srcs []string, lg *log.Logger) error {
	opts := []chart.LoaderOption{chart.WithLogger(lg)}
	if !*noCache {
		dir := *cacheDir
		if dir == "" {
			var err error
			if dir, err = util.DefaultCacheDir(); err != nil {
				lg.Warnf("%v: not caching projects", err)
			}
		}
		if dir != "" {
			opts = append(opts, chart.WithCacheDir(dir))
		}
	}
	loader := chart.NewLoader(*baseDir, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	charts := make([]*chart.Chart, len(srcs))
	results := make([]result, len(srcs))
	loadErrs := make([]error, len(srcs))
	eg, ctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		eg.Go(func() error {
			c, err := loader.Load(ctx, strings.TrimSpace(src))
			if *lint {
				// Keep going so that every chart is checked.
				charts[i], loadErrs[i] = c, err
				return nil
			} else if err != nil {
				return err
			}

			calc, err := c.Calculate(perf.Variables(vars))
			if err != nil {
				return fmt.Errorf("%s: %w", c.Meta.Src, err)
			}
			results[i] = result{Src: c.Meta.Src, Calculation: calc}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if *lint {
		var e util.ErrorLogger
		for i, c := range charts {
			if loadErrs[i] != nil {
				e.Push(srcs[i])
				e.Error(loadErrs[i])
				e.Pop()
			} else {
				printChart(c)
			}
		}
		if e.HaveErrors() {
			e.PrintErrors(lg)
			return errLint
		}
		return nil
	}

	if *dump {
		for _, r := range results {
			fmt.Fprintln(os.Stderr, godump.DumpStr(r))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

var errLint = errors.New("perfcalc: errors found in charts")

func printChart(c *chart.Chart) {
	fmt.Printf("%s\n", c.Meta.Src)

	for i, step := range c.Def().Steps {
		fmt.Printf("  step %-2d %s\n", i+1, step)
	}

	inputs := c.Inputs()
	for _, name := range util.SortedMapKeys(inputs) {
		in := inputs[name]
		fmt.Printf("  input  %-24s %s [%g, %g]\n", name, in.Unit, in.Range[0], in.Range[1])
	}
	outputs := c.Outputs()
	for _, name := range util.SortedMapKeys(outputs) {
		fmt.Printf("  output %-24s %s\n", name, outputs[name].Unit)
	}

	fmt.Printf("  guides %s\n", strings.Join(c.Project().GuideNames(), ", "))
	fmt.Printf("  scales %s\n", strings.Join(c.Project().ScaleNames(), ", "))
}
