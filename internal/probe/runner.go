// Package probe sweeps a running Rt service: it waits for the first
// snapshot, optionally triggers a reload, evaluates every region (and
// optionally every municipality) concurrently, checks each answer for
// internal consistency and writes a TSV report.
package probe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/rtmonitor/internal/export"
	"github.com/okian/rtmonitor/pkg/logger"
)

// ErrInconsistent is returned when at least one evaluation fails a check.
var ErrInconsistent = errors.New("inconsistent evaluations")

// Run executes the complete probe.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(config.BaseURL, config.Timeout)

	logger.Get().Info(ctx, "starting rt probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("reload", config.Reload),
		logger.Bool("municipalities", config.Municipalities))

	// Step 1: Wait for a loaded snapshot
	status, err := waitReady(ctx, client, config.ReadyWait)
	if err != nil {
		return stats, fmt.Errorf("service not ready: %w", err)
	}

	// Step 2: Optionally reload and wait for it to finish
	if config.Reload {
		if err := reload(ctx, client, status, config.ReadyWait); err != nil {
			return stats, fmt.Errorf("reload failed: %w", err)
		}
	}

	// Step 3: Collect targets
	targets, err := collectTargets(ctx, client, config.Municipalities)
	if err != nil {
		return stats, fmt.Errorf("catalog retrieval failed: %w", err)
	}
	stats.Targets = len(targets)

	// Step 4: Evaluate concurrently and verify
	results := sweep(ctx, client, config, targets)
	for i := range results {
		r := &results[i]
		switch {
		case r.Err != nil:
			stats.Failed++
			continue
		case r.Eval.Status == StatusOK:
			stats.OK++
		case r.Eval.Status == StatusNoData:
			stats.NoData++
		}
		r.Problems = Verify(r.Eval)
		if len(r.Problems) > 0 {
			stats.Problems++
			logger.Get().Warn(ctx, "inconsistent evaluation",
				logger.String("target", r.Target.String()),
				logger.Any("problems", r.Problems))
		}
	}

	// Step 5: Write the report
	if config.OutputDir != "" {
		path, err := writeReport(config.OutputDir, results)
		if err != nil {
			logger.Get().Warn(ctx, "failed to write report", logger.Error(err))
		} else {
			stats.Report = path
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed > 0 || stats.Problems > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d with problems", ErrInconsistent, stats.Failed, stats.Problems)
	}
	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

// waitReady polls /status until a snapshot is loaded or wait elapses.
func waitReady(ctx context.Context, client *HTTPClient, wait time.Duration) (statusResponse, error) {
	logger.Get().Info(ctx, "waiting for a loaded snapshot")
	return poll(ctx, client, wait, func(st statusResponse) bool { return st.Ready })
}

// reload requests a reload and waits until the service reports a reload
// attempt newer than before.
func reload(ctx context.Context, client *HTTPClient, before statusResponse, wait time.Duration) error {
	var ack reloadResponse
	if err := client.postJSON(ctx, "/reload", http.StatusAccepted, &ack); err != nil {
		return err
	}
	logger.Get().Info(ctx, "reload requested", logger.String("status", ack.Status), logger.String("request_id", ack.RequestID))

	st, err := poll(ctx, client, wait, func(st statusResponse) bool {
		return st.LastReloadAt.After(before.LastReloadAt)
	})
	if err != nil {
		return err
	}
	if st.LastError != "" {
		return errors.New(st.LastError)
	}
	logger.Get().Info(ctx, "reload finished", logger.String("snapshot_id", st.SnapshotID))
	return nil
}

func poll(ctx context.Context, client *HTTPClient, wait time.Duration, done func(statusResponse) bool) (statusResponse, error) {
	if wait <= 0 {
		wait = DefaultReadyWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		var st statusResponse
		err := client.getJSON(ctx, "/status", &st)
		if err == nil && done(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return st, err
			}
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// collectTargets lists every region and, when asked, every municipality
// of each region.
func collectTargets(ctx context.Context, client *HTTPClient, municipalities bool) ([]Target, error) {
	var regions catalogResponse
	if err := client.getJSON(ctx, "/regions", &regions); err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(regions.Items))
	for _, region := range regions.Items {
		targets = append(targets, Target{Region: region})
		if !municipalities {
			continue
		}
		var towns catalogResponse
		if err := client.getJSON(ctx, "/municipalities?region="+url.QueryEscape(region), &towns); err != nil {
			return nil, err
		}
		for _, town := range towns.Items {
			targets = append(targets, Target{Region: region, Municipality: town})
		}
	}
	logger.Get().Info(ctx, "targets collected", logger.Int("regions", len(regions.Items)), logger.Int("targets", len(targets)))
	return targets, nil
}

// writeReport writes one row per target to a timestamped TSV file.
func writeReport(dir string, results []Result) (string, error) {
	path := filepath.Join(dir, "probe_"+time.Now().Format("20060102_150405")+".tsv")
	fw, err := export.NewFileWriter(path)
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(fw)
	w.Comma = '\t'
	_ = w.Write([]string{"region", "municipality", "status", "reason", "positives", "days", "last_rt_smoothed", "latency_ms", "error"})
	for _, r := range results {
		days, last := "", ""
		if r.Eval.Rt != nil {
			days = strconv.Itoa(len(r.Eval.Rt.Axis))
		}
		if v, ok := r.Eval.LastSmoothed(); ok {
			last = strconv.FormatFloat(v, 'f', 4, 64)
		}
		msg := ""
		switch {
		case r.Err != nil:
			msg = r.Err.Error()
		case len(r.Problems) > 0:
			msg = fmt.Sprint(r.Problems)
		}
		_ = w.Write([]string{r.Target.Region, r.Target.Municipality, r.Eval.Status, r.Eval.Reason,
			strconv.Itoa(r.Eval.Summary.Positives), days, last,
			strconv.FormatInt(r.Latency.Milliseconds(), 10), msg})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fw.Abort()
		return "", err
	}
	return path, fw.Close()
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var okRate, perSecond float64
	if stats.Targets > 0 {
		okRate = float64(stats.OK) / float64(stats.Targets) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Targets) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("targets", stats.Targets),
		logger.Int("ok", stats.OK),
		logger.Int("noData", stats.NoData),
		logger.Int("failed", stats.Failed),
		logger.Int("withProblems", stats.Problems),
		logger.String("report", stats.Report),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("okRate", okRate),
		logger.Float64("evaluationsPerSecond", perSecond))
}
