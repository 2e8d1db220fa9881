// Package loader reads trial directories of the results tree:
//
//	<root>/<strategy>/<trial-id>/load_test.json
//	<root>/<strategy>/<trial-id>/balancer.log
//	<root>/<strategy>/<trial-id>/worker-*
//
// Each trial is parsed on its own goroutine into an immutable models.Trial.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/imishinist/lbeval/internal/models"
	"github.com/imishinist/lbeval/internal/parser"
)

var (
	ErrTrialDirectoryMissing = errors.New("trial directory missing")
	ErrLogFileMissing        = errors.New("log file missing")
)

const maxLineSize = 4 * 1024 * 1024

// Source names the log file(s) to read inside a trial directory.
type Source struct {
	Name   string
	Prefix bool
	Format parser.Format
}

var (
	SourceLoadTest = Source{Name: "load_test.json", Format: parser.FormatStructuredMetric}
	SourceBalancer = Source{Name: "balancer.log", Format: parser.FormatFreeText}
	SourceWorkers  = Source{Name: "worker-", Prefix: true, Format: parser.FormatFreeText}
)

func (s Source) String() string {
	if s.Prefix {
		return s.Name + "*"
	}
	return s.Name
}

type Loader struct {
	root        string
	parallelism int
	logger      logrus.FieldLogger
}

func New(root string, parallelism int, logger logrus.FieldLogger) *Loader {
	if parallelism <= 0 {
		parallelism = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{root: root, parallelism: parallelism, logger: logger}
}

// Result holds the usable trials of one strategy in trial-id order. Excluded
// combines the errors of every trial that was left out.
type Result struct {
	Strategy models.Strategy
	Trials   []models.Trial
	Excluded error
}

func (r *Result) ExcludedCount() int {
	return len(multierr.Errors(r.Excluded))
}

// ListTrials returns the sorted trial directory names of a strategy.
func (l *Loader) ListTrials(strategy models.Strategy) ([]string, error) {
	dir := filepath.Join(l.root, string(strategy))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTrialDirectoryMissing, dir)
		}
		return nil, fmt.Errorf("failed to list trials in %s: %w", dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// LoadStrategy parses source for every trial of strategy. Trials whose files
// are missing or unreadable are excluded and reported in Result.Excluded; only
// a missing strategy directory or a cancelled context fails the call.
func (l *Loader) LoadStrategy(ctx context.Context, strategy models.Strategy, source Source) (*Result, error) {
	ids, err := l.ListTrials(strategy)
	if err != nil {
		return nil, err
	}

	trials := make([]*models.Trial, len(ids))
	failures := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			trial, err := l.LoadTrial(gctx, strategy, id, source)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			trials[i] = trial
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load %s trials: %w", strategy, err)
	}

	result := &Result{Strategy: strategy}
	for i, trial := range trials {
		if trial != nil {
			result.Trials = append(result.Trials, *trial)
			continue
		}
		l.logger.WithFields(logrus.Fields{
			"strategy": strategy,
			"trial":    ids[i],
			"file":     source.String(),
		}).Warnf("excluding trial: %v", failures[i])
		result.Excluded = multierr.Append(result.Excluded, failures[i])
	}
	return result, nil
}

// LoadTrial parses one trial's source file(s). Malformed lines are counted in
// Trial.Malformed and skipped.
func (l *Loader) LoadTrial(ctx context.Context, strategy models.Strategy, id string, source Source) (*models.Trial, error) {
	dir := filepath.Join(l.root, string(strategy), id)
	paths, err := resolve(dir, source)
	if err != nil {
		return nil, err
	}

	trial := &models.Trial{Strategy: strategy, ID: id}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events, malformed, err := l.readEvents(path, source.Format)
		if err != nil {
			return nil, err
		}
		trial.Events = append(trial.Events, events...)
		trial.Malformed += malformed
	}

	log := l.logger.WithFields(logrus.Fields{
		"strategy": strategy,
		"trial":    id,
		"file":     source.String(),
		"events":   len(trial.Events),
	})
	if trial.Malformed > 0 {
		log.WithField("malformed", trial.Malformed).Warn("skipped malformed lines")
	} else {
		log.Debug("loaded trial")
	}
	return trial, nil
}

func resolve(dir string, source Source) ([]string, error) {
	if !source.Prefix {
		path := filepath.Join(dir, source.Name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrLogFileMissing, path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLogFileMissing, dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), source.Name) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrLogFileMissing, source, dir)
	}
	return paths, nil
}

func (l *Loader) readEvents(path string, format parser.Format) ([]models.Event, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var events []models.Event
	malformed := 0
	lineNo := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, ok, err := parser.ParseLine(format, line)
		if err != nil {
			malformed++
			l.logger.WithFields(logrus.Fields{"file": path, "line": lineNo}).Debug(err)
			continue
		}
		if ok {
			events = append(events, event)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return events, malformed, nil
}
