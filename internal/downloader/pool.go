// Package downloader fetches the files of a feed concurrently into storage.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"igfeed/pkg/logger"
	"igfeed/pkg/retry"
	"igfeed/pkg/storage"
)

// Job is one asset to fetch
type Job struct {
	ShortCode string
	Asset     storage.Asset
}

// Result is the outcome of a job. Skipped is set when the asset was already
// stored and nothing was fetched.
type Result struct {
	Job      Job
	Skipped  bool
	Err      error
	Duration time.Duration
	Size     int
}

// Fetcher downloads the bytes behind an asset URL
type Fetcher interface {
	FetchAsset(ctx context.Context, rawURL string) ([]byte, error)
}

// Storage stores fetched assets by file name
type Storage interface {
	Has(name string) bool
	Save(name string, r io.Reader) error
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     Fetcher
	storage     Storage
	retry       *retry.Config
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool. Cancelling ctx stops the
// workers after their current job. A nil retry config fetches each asset once.
func NewWorkerPool(ctx context.Context, numWorkers int, fetcher Fetcher, store Storage, retryCfg *retry.Config, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1, Logger: log}
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     store,
		retry:       retryCfg,
		logger:      log.WithField("component", "downloader"),
	}
}

// Start starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for the workers to drain it and closes the
// result channel. Submit must not be called after Stop.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel. It must be drained for the workers to
// make progress.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// Run starts the pool, feeds it jobs and returns one result per processed
// job. Jobs left queued when ctx is cancelled are not reported.
func (wp *WorkerPool) Run(jobs []Job) []Result {
	wp.Start()
	go func() {
		defer wp.Stop()
		for _, job := range jobs {
			if err := wp.Submit(job); err != nil {
				return
			}
		}
	}()

	results := make([]Result, 0, len(jobs))
	for result := range wp.Results() {
		results = append(results, result)
	}
	return results
}

// QueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if wp.ctx.Err() != nil {
			return
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}
	fields := map[string]interface{}{
		"worker_id":  workerID,
		"short_code": job.ShortCode,
		"asset":      job.Asset.Name,
	}

	if wp.storage.Has(job.Asset.Name) {
		wp.logger.DebugWithFields("Asset already stored", fields)
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	data, err := retry.DoWithResult(wp.ctx, func(ctx context.Context) ([]byte, error) {
		return wp.fetcher.FetchAsset(ctx, job.Asset.URL)
	}, wp.retry)
	if err != nil {
		result.Err = fmt.Errorf("download failed: %w", err)
		result.Duration = time.Since(start)
		fields["error"] = err.Error()
		wp.logger.ErrorWithFields("Worker failed to download asset", fields)
		return result
	}
	result.Size = len(data)

	if err := wp.storage.Save(job.Asset.Name, bytes.NewReader(data)); err != nil {
		result.Err = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		fields["error"] = err.Error()
		wp.logger.ErrorWithFields("Worker failed to save asset", fields)
		return result
	}

	result.Duration = time.Since(start)
	fields["size"] = result.Size
	fields["duration"] = result.Duration
	wp.logger.DebugWithFields("Worker stored asset", fields)
	return result
}
