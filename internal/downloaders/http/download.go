package rangehttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/ranges"
	"github.com/tanq16/rangedl/internal/utils"
)

// Download streams every planned range, in order, into a temp file next to
// the output path and moves it into place once all bytes have arrived. A
// failed download leaves the partial file under the temp directory.
func (d *HTTPDownloader) Download(ctx context.Context, job *utils.RangeJob) error {
	plan, ok := job.Metadata["plan"].(ranges.Plan)
	if !ok {
		return configErr(errors.New("job has not been built"))
	}
	fileSize, _ := job.Metadata["fileSize"].(int64)
	logger := log.With().Str("op", "http/download").Str("job", job.ID).Logger()

	tempPath := utils.TempPath(job.OutputPath)
	if err := os.MkdirAll(filepath.Dir(tempPath), 0755); err != nil {
		return ioErr(fmt.Errorf("error creating temp directory: %w", err))
	}
	outFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return ioErr(fmt.Errorf("error creating output file: %w", err))
	}

	progressCh := make(chan int64, 100)
	progressDone := make(chan struct{})
	startTime := time.Now()
	go trackProgress(job, fileSize, progressCh, progressDone)

	fetcher := NewFetcher(job.HTTPClient(), job.URL)
	sink := &progressWriter{w: outFile, progressCh: progressCh}
	total, err := fetcher.FetchAll(ctx, plan, sink, func(r ranges.ByteRange, n int64) {
		logger.Debug().Str("range", r.Header()).Int64("bytes", n).Msg("Range written")
	})

	close(progressCh)
	<-progressDone

	if err != nil {
		outFile.Close()
		logger.Error().Err(err).Str("partial", tempPath).Int64("written", total).Msg("Download aborted")
		return err
	}
	if err := outFile.Sync(); err != nil {
		outFile.Close()
		return ioErr(fmt.Errorf("error syncing output file: %w", err))
	}
	if err := outFile.Close(); err != nil {
		return ioErr(fmt.Errorf("error closing output file: %w", err))
	}
	if total != fileSize {
		return fmt.Errorf("%w: %w: expected %d bytes, wrote %d", ErrProtocol, ErrSizeMismatch, fileSize, total)
	}
	if err := os.Rename(tempPath, job.OutputPath); err != nil {
		return ioErr(fmt.Errorf("error renaming (finalizing) output file: %w", err))
	}
	if err := utils.CleanOutput(job.OutputPath); err != nil {
		logger.Warn().Err(err).Msg("Could not remove temp directory")
	}

	elapsed := time.Since(startTime)
	job.Metadata["totalDownloaded"] = total
	job.Metadata["totalTime"] = elapsed.Seconds()
	logger.Info().Int64("bytes", total).Dur("elapsed", elapsed).Str("output", job.OutputPath).Msg("Download complete")
	return nil
}

// trackProgress aggregates written byte counts and reports them to the job at
// most every 100ms, plus once more when the channel closes.
func trackProgress(job *utils.RangeJob, fileSize int64, progressCh <-chan int64, done chan<- struct{}) {
	defer close(done)
	var downloaded, lastReported int64
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case n, ok := <-progressCh:
			if !ok {
				if job.ProgressFunc != nil {
					job.ProgressFunc(downloaded, fileSize)
				}
				return
			}
			downloaded += n
		case <-ticker.C:
			if downloaded > lastReported && job.ProgressFunc != nil {
				job.ProgressFunc(downloaded, fileSize)
				lastReported = downloaded
			}
		}
	}
}

type progressWriter struct {
	w          io.Writer
	progressCh chan<- int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.progressCh <- int64(n)
	}
	return n, err
}
