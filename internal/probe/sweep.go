package probe

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rtmonitor/pkg/logger"
)

// sweep evaluates targets with a pool of config.Workers workers. Results
// keep the order of targets.
func sweep(ctx context.Context, client *HTTPClient, config *Config, targets []Target) []Result {
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	logger.Get().Info(ctx, "evaluating targets", logger.Int("targets", len(targets)), logger.Int("workers", workers))

	results := make([]Result, len(targets))
	var (
		done   int64
		failed int64
	)

	// Progress reporting
	var lastReport atomic.Int64
	reportInterval := time.Second

	indexChan := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				if ctx.Err() != nil {
					results[index] = Result{Target: targets[index], Err: ctx.Err()}
					atomic.AddInt64(&failed, 1)
					continue
				}
				r := evaluateOne(ctx, client, targets[index])
				results[index] = r
				atomic.AddInt64(&done, 1)
				if r.Err != nil {
					atomic.AddInt64(&failed, 1)
				}
				if config.Verbose {
					logger.Get().Debug(ctx, "evaluated",
						logger.String("target", r.Target.String()),
						logger.String("status", r.Eval.Status),
						logger.Duration("latency", r.Latency),
						logger.Error(r.Err))
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					logger.Get().Info(ctx, "progress",
						logger.Int64("evaluated", atomic.LoadInt64(&done)),
						logger.Int("total", len(targets)),
						logger.Int64("failed", atomic.LoadInt64(&failed)))
				}
			}
		}()
	}

	for i := range targets {
		indexChan <- i
	}
	close(indexChan)
	wg.Wait()

	logger.Get().Info(ctx, "evaluation completed",
		logger.Int64("evaluated", atomic.LoadInt64(&done)),
		logger.Int64("failed", atomic.LoadInt64(&failed)))
	return results
}

func evaluateOne(ctx context.Context, client *HTTPClient, t Target) Result {
	q := url.Values{}
	q.Set("region", t.Region)
	if t.Municipality != "" {
		q.Set("municipality", t.Municipality)
	}
	start := time.Now()
	r := Result{Target: t}
	r.Err = client.getJSON(ctx, "/rt?"+q.Encode(), &r.Eval)
	r.Latency = time.Since(start)
	return r
}
