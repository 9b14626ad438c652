package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/harmony-timetable-api/internal/scheduler"
)

// payload is the offline input: run configuration plus the four catalogs.
type payload struct {
	Config   scheduler.RunConfig `json:"config"`
	Rooms    []scheduler.Room    `json:"rooms"`
	Teachers []scheduler.Teacher `json:"teachers"`
	Batches  []scheduler.Batch   `json:"batches"`
	Subjects []scheduler.Subject `json:"subjects"`
}

type output struct {
	Timetables []*scheduler.Candidate `json:"timetables"`
	Stats      scheduler.RunStats     `json:"stats"`
	DurationMs int64                  `json:"duration_ms"`
}

type failureOutput struct {
	Error    string         `json:"error"`
	Hint     string         `json:"hint,omitempty"`
	Attempts int            `json:"attempts,omitempty"`
	Reasons  map[string]int `json:"reasons,omitempty"`
}

func main() {
	var (
		inputPath  string
		outputPath string
		count      int
		seed       int64
		verbose    bool
	)

	flag.StringVar(&inputPath, "input", "-", "Path to the JSON payload, - for stdin")
	flag.StringVar(&outputPath, "output", "-", "Path for the JSON result, - for stdout")
	flag.IntVar(&count, "count", 0, "Number of timetables to generate (overrides config.timetable_count)")
	flag.Int64Var(&seed, "seed", 0, "Random seed (overrides config.seed)")
	flag.BoolVar(&verbose, "verbose", false, "Log engine progress to stderr")
	flag.Parse()

	in, err := loadPayload(inputPath)
	if err != nil {
		log.Fatalf("failed to load payload: %v", err)
	}
	if count > 0 {
		in.Config.TimetableCount = count
	}
	if seed != 0 {
		in.Config.Seed = seed
	}
	if in.Config.TimetableCount <= 0 {
		in.Config.TimetableCount = 1
	}

	logr := zap.NewNop()
	if verbose {
		if logr, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("failed to init logger: %v", err)
		}
		defer logr.Sync() //nolint:errcheck
	}

	start := time.Now()
	var result *scheduler.Result
	if in.Config.TimetableCount == 1 {
		result, err = scheduler.GenerateTimetable(in.Config, in.Rooms, in.Teachers, in.Batches, in.Subjects, scheduler.WithLogger(logr))
	} else {
		result, err = scheduler.GenerateTimetableSet(in.Config, in.Rooms, in.Teachers, in.Batches, in.Subjects, in.Config.TimetableCount, scheduler.WithLogger(logr))
	}
	if err != nil {
		writeJSON(outputPath, failure(err))
		os.Exit(1)
	}

	writeJSON(outputPath, output{
		Timetables: result.Candidates,
		Stats:      result.Stats,
		DurationMs: time.Since(start).Milliseconds(),
	})
	fmt.Fprintf(os.Stderr, "generated %d timetable(s), best dissonance %d\n", len(result.Candidates), result.Best().Dissonance)
}

func loadPayload(path string) (payload, error) {
	var in payload
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return in, err
		}
		defer f.Close()
		r = f
	}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		return in, fmt.Errorf("decode payload: %w", err)
	}
	return in, nil
}

func failure(err error) failureOutput {
	out := failureOutput{Error: err.Error()}
	var fe *scheduler.FailureError
	if errors.As(err, &fe) {
		out.Hint = fe.Hint
		out.Attempts = fe.Attempts
		out.Reasons = make(map[string]int, len(fe.Reasons))
		for reason, n := range fe.Reasons {
			out.Reasons[string(reason)] = n
		}
	}
	if errors.Is(err, scheduler.ErrInvalidConfig) {
		out.Hint = strings.TrimPrefix(err.Error(), scheduler.ErrInvalidConfig.Error()+": ")
	}
	return out
}

func writeJSON(path string, v interface{}) {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatalf("failed to create output: %v", err)
		}
		defer f.Close()
		w = f
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		log.Fatalf("failed to write result: %v", err)
	}
}
