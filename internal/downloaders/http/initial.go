package rangehttp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rangedl/internal/ranges"
	"github.com/tanq16/rangedl/internal/utils"
)

type HTTPDownloader struct{}

func (d *HTTPDownloader) ValidateJob(job *utils.RangeJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return configErr(fmt.Errorf("invalid URL: %w", err))
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return configErr(fmt.Errorf("unsupported scheme: %q", parsedURL.Scheme))
	}
	if parsedURL.Host == "" {
		return configErr(errors.New("URL has no host"))
	}
	if job.ChunkSize <= 0 {
		return configErr(fmt.Errorf("%w: got %d", ranges.ErrInvalidStep, job.ChunkSize))
	}
	return nil
}

func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.RangeJob) error {
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	fetcher := NewFetcher(job.HTTPClient(), job.URL)
	info, err := fetcher.Probe(ctx)
	if err != nil {
		return err
	}
	if !info.AcceptRanges {
		// not fatal, the first range response must still be a 206
		log.Warn().Str("op", "http/initial").Str("job", job.ID).Msg("Server did not advertise byte range support")
	}

	plan, err := ranges.ForLength(info.Size, job.ChunkSize)
	if err != nil {
		return configErr(err)
	}

	if job.OutputPath == "" {
		job.OutputPath = inferOutputPath(job.URL, info.FileName)
	}
	if existing, err := os.Stat(job.OutputPath); err == nil {
		if existing.IsDir() {
			job.OutputPath = filepath.Join(job.OutputPath, inferOutputPath(job.URL, info.FileName))
		}
		if _, err := os.Stat(job.OutputPath); err == nil {
			job.OutputPath = utils.RenewOutputPath(job.OutputPath)
		}
	}

	job.Metadata["fileSize"] = info.Size
	job.Metadata["fileName"] = info.FileName
	job.Metadata["acceptRanges"] = info.AcceptRanges
	job.Metadata["plan"] = plan
	job.Metadata["rangeCount"] = plan.Len()
	log.Info().Str("op", "http/initial").Str("job", job.ID).Str("output", job.OutputPath).Int64("size", info.Size).Int64("ranges", plan.Len()).Msg("Job built")
	return nil
}

func inferOutputPath(link, dispositionName string) string {
	if dispositionName != "" {
		return dispositionName
	}
	if name := filenameFromURL(link); name != "" {
		return name
	}
	return "download"
}
