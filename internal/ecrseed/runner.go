// Package ecrseed uploads a folder of FantasyPros ECR exports to a running
// service and checks the projections picked them up.
package ecrseed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gridcast/internal/adapters/source/fantasypros"
	"github.com/okian/gridcast/pkg/logger"
)

// ErrNoFiles is returned when the folder holds no ECR exports.
var ErrNoFiles = errors.New("no ecr files found")

// Run discovers the ECR exports in cfg.Dir, uploads them concurrently and
// reads back the summary.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("ecrseed")

	log.Info(ctx, "starting ecr seed",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("dir", cfg.Dir),
		logger.Int("season", cfg.Season),
		logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Discover exports
	uploads, err := Discover(cfg.Dir, cfg.Season)
	if err != nil {
		return nil, err
	}
	stats.FilesFound = len(uploads)
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, cfg.Dir)
	}

	// Step 3: Upload concurrently
	submit(ctx, cfg, client, uploads, stats, log)

	// Step 4: Read back what the projections see now
	if err := client.get(ctx, "/summary", &stats.Summary); err != nil {
		return stats, fmt.Errorf("summary retrieval failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("files", stats.FilesFound),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("rows", stats.Rows),
		logger.Int("version", int(stats.Summary.Version)),
		logger.Int("withECR", stats.Summary.WithECR),
		logger.Duration("duration", stats.Duration))

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d uploads failed", stats.Failed, stats.FilesFound)
	}
	return stats, nil
}

// Discover lists the ECR exports in dir in week order. Files that are not
// ECR exports, or that belong to another season, are skipped.
func Discover(dir string, season int) ([]Upload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fantasypros.ErrDataDir, err)
	}
	out := make([]Upload, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f := fantasypros.Classify(e.Name(), season)
		if f.Kind != fantasypros.KindECR {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		out = append(out, Upload{
			File: e.Name(),
			Week: f.Week,
			ID:   uploadID(f.Week, body),
			Body: body,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].File < out[j].File
	})
	return out, nil
}

// uploadID derives a stable id from the week and the file contents.
func uploadID(week int, body []byte) string {
	name := append([]byte("ecr-week-"+strconv.Itoa(week)+":"), body...)
	return uuid.NewSHA1(uuid.NameSpaceURL, name).String()
}

// submit uploads every export using a bounded worker pool.
func submit(ctx context.Context, cfg *Config, client *httpClient, uploads []Upload, stats *Stats, log logger.Logger) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	jobs := make(chan Upload, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for up := range jobs {
				ack, err := client.postCSV(ctx, up)

				mu.Lock()
				switch {
				case err != nil:
					stats.Failed++
				case ack.Duplicate:
					stats.Duplicate++
				default:
					stats.Accepted++
					stats.Rows += ack.Accepted
				}
				if ack.Version > stats.Version {
					stats.Version = ack.Version
				}
				mu.Unlock()

				if err != nil {
					log.Warn(ctx, "upload failed", logger.String("file", up.File), logger.Error(err))
					continue
				}
				if cfg.Verbose {
					log.Info(ctx, "uploaded",
						logger.String("file", up.File),
						logger.Int("week", up.Week),
						logger.Int("rows", ack.Accepted),
						logger.Bool("duplicate", ack.Duplicate))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, up := range uploads {
			select {
			case <-ctx.Done():
				return
			case jobs <- up:
			}
		}
	}()

	wg.Wait()
}
