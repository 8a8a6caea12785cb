// Command project computes projections from a FantasyPros data folder and
// writes them as JSON without starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/okian/gridcast/internal/adapters/source/fantasypros"
	app "github.com/okian/gridcast/internal/app"
	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/projection"
	"github.com/okian/gridcast/pkg/logger"
)

// ErrUsage is returned for invalid command line arguments.
var ErrUsage = errors.New("usage error")

// output is the document written by the command.
type output struct {
	Scoring      model.ScoringSystem     `json:"scoring"`
	CurrentWeek  int                     `json:"current_week"`
	NextWeek     int                     `json:"next_week"`
	BaselineYear int                     `json:"baseline_year"`
	Projections  []model.Projection      `json:"projections"`
	Reliability  []model.ReliabilityStat `json:"reliability,omitempty"`
}

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logger.Get().Error(ctx, "projection failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run parses args, loads the data folder and writes the projections to
// stdout or the -out file.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.New(ctx)

	fs := flag.NewFlagSet("project", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		dir         = fs.String("dir", cfg.DataDir, "Folder holding the FantasyPros CSV exports")
		scoringName = fs.String("scoring", cfg.ScoringSystem, "Scoring system: ppr, half or standard")
		week        = fs.Int("week", 0, "ECR week to project; 0 means the week after the latest score")
		season      = fs.Int("season", 0, "Only read ECR files naming this year")
		outPath     = fs.String("out", "", "Write to this file instead of stdout")
		withRel     = fs.Bool("reliability", false, "Include per-player reliability")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	scoring, err := model.ParseScoringSystem(*scoringName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	cfg.NextWeek = *week
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	log := logger.Get()
	svc := app.New(
		app.WithLogger(log),
		app.WithLoader(fantasypros.NewLoader(*dir, fantasypros.WithSeason(*season), fantasypros.WithLogger(log))),
		app.WithDefaultScoring(scoring),
		app.WithNextWeek(cfg.NextWeek),
		app.WithEngine(projection.NewEngine(projection.WithParams(cfg.ProjectionParams()))),
		app.WithBaselineOptions(cfg.BaselineOptions()...),
		app.WithReliabilityOptions(cfg.ReliabilityOptions()...),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	snap, err := svc.Snapshot(ctx, scoring)
	if err != nil {
		return err
	}

	doc := output{
		Scoring:      snap.Scoring,
		CurrentWeek:  snap.CurrentWeek,
		NextWeek:     snap.NextWeek,
		BaselineYear: snap.BaselineYear,
		Projections:  snap.Projections,
	}
	if *withRel {
		doc.Reliability = make([]model.ReliabilityStat, 0, len(snap.Reliability))
		for _, st := range snap.Reliability {
			doc.Reliability = append(doc.Reliability, st)
		}
		sort.Slice(doc.Reliability, func(i, j int) bool { return doc.Reliability[i].Name < doc.Reliability[j].Name })
	}

	w := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
