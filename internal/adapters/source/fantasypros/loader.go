package fantasypros

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/okian/gridcast/pkg/metrics"
)

// Loader reads a FantasyPros data folder into a model.Dataset.
type Loader struct {
	dir    string
	season int
	log    logger.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithSeason limits ECR files to names containing year.
func WithSeason(year int) Option {
	return func(l *Loader) {
		if year > 0 {
			l.season = year
		}
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader returns a Loader for dir.
func NewLoader(dir string, opts ...Option) *Loader {
	l := &Loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("fantasypros")
	}
	return l
}

// Load classifies and parses every file in the folder. Unreadable or
// malformed files are logged and skipped; only an unreadable folder fails.
// Several ECR files for the same week, such as one per position, are merged.
func (l *Loader) Load(ctx context.Context) (*model.Dataset, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataDir, l.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	data := model.NewDataset()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := Classify(name, l.season)
		if f.Kind == KindIgnored {
			continue
		}
		if err := l.loadFile(ctx, data, f); err != nil {
			l.log.Warn(ctx, "skipping data file", logger.String("file", name), logger.Error(err))
			metrics.RecordErrorByComponent("fantasypros", "parse_failed")
			continue
		}
		metrics.RecordFileLoaded(string(f.Kind))
	}

	l.log.Info(ctx, "data folder loaded",
		logger.String("dir", l.dir),
		logger.Int("historical_seasons", countSeasons(data.Historical)),
		logger.Int("current_players", len(data.CurrentFor(model.PPR))),
		logger.Int("current_week", data.CurrentWeek(model.PPR)),
		logger.Any("ecr_weeks", data.Weekly.Weeks()),
	)
	return data, nil
}

func (l *Loader) loadFile(ctx context.Context, data *model.Dataset, f File) error {
	fh, err := os.Open(filepath.Join(l.dir, f.Name))
	if err != nil {
		return err
	}
	defer fh.Close()

	if f.Kind == KindECR {
		entries, rep, err := ParseECR(fh)
		if err != nil {
			return err
		}
		metrics.RecordRowsSkipped(string(KindECR), rep.Skipped)
		if len(entries) == 0 {
			return nil
		}
		data.Weekly[f.Week] = append(data.Weekly[f.Week], entries...)
		l.log.Debug(ctx, "ecr week loaded", logger.Int("week", f.Week), logger.Int("players", rep.Kept), logger.Int("skipped", rep.Skipped))
		return nil
	}

	season, rep, err := ParsePoints(fh)
	if err != nil {
		return err
	}
	metrics.RecordRowsSkipped(string(f.Kind), rep.Skipped)
	switch f.Kind {
	case KindHistorical:
		data.Historical.Put(f.Scoring, f.Year, season)
	case KindCurrent:
		data.Current[f.Scoring] = season
	}
	l.log.Debug(ctx, "points file loaded",
		logger.String("file", f.Name),
		logger.String("scoring", string(f.Scoring)),
		logger.Int("players", rep.Kept),
		logger.Int("skipped", rep.Skipped))
	return nil
}

func countSeasons(a model.Archive) int {
	n := 0
	for _, years := range a {
		n += len(years)
	}
	return n
}
