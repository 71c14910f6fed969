// Package main runs scan groups against the mock radio and prints the bundles.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"geoscan/pkg/config"
	"geoscan/pkg/core"
	"geoscan/pkg/energy"
	"geoscan/pkg/radio/mockradio"
	"geoscan/pkg/scan"
)

func main() {
	groups := flag.Int("groups", 3, "Number of scan groups to run")
	busy := flag.Int("busy", 0, "Answer busy to the first n scan starts")
	faultAt := flag.Int("fault-at", 0, "Inject a radio fault before group n, then reinit (0 = never)")
	latency := flag.Duration("latency", 20*time.Millisecond, "Mock radio scan latency")
	verbose := flag.Bool("v", false, "Log scheduler activity to stderr")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := options{groups: *groups, busy: *busy, faultAt: *faultAt, latency: *latency}
	if err := run(context.Background(), opts, logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "scantest: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	groups  int
	busy    int
	faultAt int
	latency time.Duration
}

type summary struct {
	Sequence   uint64         `json:"sequence"`
	Detections map[string]int `json:"detections"`
	EnergyUAh  uint64         `json:"energy_uah"`
	TotalUAh   uint64         `json:"total_uah"`
}

func run(ctx context.Context, opts options, logger *slog.Logger, out io.Writer) error {
	cfg := config.DefaultConfig()
	cfg.Radio.Mock.Latency = config.Duration(opts.latency)

	prov := config.NewProvider(cfg, nil)
	gc, err := core.GroupConfigFrom(ctx, prov)
	if err != nil {
		return err
	}

	r := mockradio.NewClient(mockradio.Config{
		Latency:             opts.latency,
		AccessPoints:        cfg.Radio.Mock.AccessPoints,
		Satellites:          cfg.Radio.Mock.Satellites,
		EnergyPerChannelUAh: cfg.Radio.Mock.EnergyPerChannelUAh,
		GNSSEnergyUAh:       cfg.Radio.Mock.GNSSEnergyUAh,
		Seed:                cfg.Radio.Mock.Seed,
	})
	r.InjectBusy(opts.busy)

	acct := energy.NewAccountant()
	sched, err := core.NewScheduler(gc, core.Deps{Energy: acct, Logger: logger, Recover: r.Reset})
	if err != nil {
		return err
	}
	jobs, err := core.NewScanJobs(cfg, gc.Order, r, scan.SystemClock{}, logger)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		sched.AddJob(j)
	}

	enc := json.NewEncoder(out)
	for i := 1; i <= opts.groups; i++ {
		if i == opts.faultAt {
			r.InjectFault()
		}
		b, err := sched.RunGroup(ctx)
		if errors.Is(err, scan.ErrRadioFault) {
			fmt.Fprintf(out, "group %d: %v\n", i, err)
			if err := sched.Reinit(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		s := summary{Sequence: b.Sequence, Detections: map[string]int{}, EnergyUAh: b.EnergyUAh, TotalUAh: b.TotalEnergyUAh}
		for _, set := range b.Sets {
			s.Detections[string(set.Technology)] = set.Count()
		}
		if err := enc.Encode(s); err != nil {
			return err
		}
	}

	st := r.Stats()
	fmt.Fprintf(out, "starts=%d teardowns=%d busy=%d faults=%d total_uah=%d\n", st.Starts, st.Teardowns, st.Busy, st.Faults, acct.Total())
	return nil
}
