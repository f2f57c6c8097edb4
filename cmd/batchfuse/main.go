// Command batchfuse is a thin driver around fuse.BatchFuse: load a .zmf
// model, fold its fake batch dimension into the spatial W/H axes, and
// write the fused model back out. Grounded on cmd/zerfoo-predict/main.go's
// shape (flag parsing, load, run, report).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zerfoo/batchfuse/diag"
	"github.com/zerfoo/batchfuse/fuse"
	"github.com/zerfoo/batchfuse/fuse/ops"
	"github.com/zerfoo/batchfuse/irio"
)

// fuseConfig represents command-line configuration for a batch-fuse run.
type fuseConfig struct {
	InputPath  string
	OutputPath string
	FakeBatch  uint
	TracePath  string
	Verbose    bool
	Overwrite  bool
}

func main() {
	config := parseFuseFlags()

	if config.Verbose {
		log.Printf("starting batch fuse with config: %+v", config)
	}

	start := time.Now()

	if err := runFuse(config); err != nil {
		log.Printf("batch fuse failed: %v", err)
		os.Exit(1)
	}

	log.Printf("batch fuse completed successfully in %v", time.Since(start))
}

func parseFuseFlags() *fuseConfig {
	config := &fuseConfig{}

	flag.StringVar(&config.InputPath, "in", "", "path to the input .zmf model (required)")
	flag.StringVar(&config.OutputPath, "out", "", "path for the fused .zmf model (required)")
	flag.UintVar(&config.FakeBatch, "fake-batch", 1, "fake batch size to fold into W/H; must be a perfect square")
	flag.StringVar(&config.TracePath, "trace", "", "optional path to write a gap-inference trace (.parquet)")
	flag.BoolVar(&config.Verbose, "verbose", false, "verbose output")
	flag.BoolVar(&config.Overwrite, "overwrite", false, "overwrite an existing output file")

	flag.Parse()

	if config.InputPath == "" {
		log.Fatal("input model path is required (-in)")
	}

	if config.OutputPath == "" {
		log.Fatal("output model path is required (-out)")
	}

	if _, err := os.Stat(config.OutputPath); err == nil && !config.Overwrite {
		log.Fatalf("output file exists and -overwrite not specified: %s", config.OutputPath)
	}

	return config
}

func runFuse(config *fuseConfig) error {
	if config.Verbose {
		log.Printf("loading model from: %s", config.InputPath)
	}

	src, err := irio.LoadZMF(config.InputPath)
	if err != nil {
		return fmt.Errorf("loading %q: %w", config.InputPath, err)
	}

	ops.RegisterAll(fuse.DefaultRegistry)

	opts := []fuse.Option{fuse.WithLogger(fuse.NewStdLogger())}

	var recorder *diag.Recorder

	if config.TracePath != "" {
		recorder = diag.NewRecorder(config.TracePath)
		opts = append(opts, fuse.WithGapTracer(func(tensorID int, opKind string, w, h fuse.Gap, revision int) {
			recorder.Record(diag.GapEvent{
				TensorID: tensorID,
				OpKind:   opKind,
				LeftW:    w.Left, RightW: w.Right,
				LeftH: h.Left, RightH: h.Right,
				Revision: revision,
			})
		}))
	}

	out, ioMap, err := fuse.BatchFuse(src, uint32(config.FakeBatch), opts...)
	if err != nil {
		return fmt.Errorf("batch fuse: %w", err)
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			return fmt.Errorf("writing trace %q: %w", config.TracePath, err)
		}

		if config.Verbose {
			log.Printf("gap-inference trace written to: %s", config.TracePath)
		}
	}

	if config.Verbose {
		log.Printf("fused graph carries %d input(s), %d output(s) mapped from the source graph", len(src.Inputs()), len(src.Outputs()))

		for _, in := range src.Inputs() {
			log.Printf("  input %s -> %s", in, ioMap[in])
		}

		for _, o := range src.Outputs() {
			log.Printf("  output %s -> %s", o, ioMap[o])
		}
	}

	if err := irio.ExportZMF(out, config.OutputPath); err != nil {
		return fmt.Errorf("exporting %q: %w", config.OutputPath, err)
	}

	if config.Verbose {
		log.Printf("fused model written to: %s", config.OutputPath)
	}

	return nil
}
