package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	rangehttp "github.com/tanq16/rangedl/internal/downloaders/http"
	"github.com/tanq16/rangedl/internal/output"
	"github.com/tanq16/rangedl/internal/utils"
)

// downloaderRegistry maps job types to their downloader implementations
var downloaderRegistry = map[string]utils.Downloader{
	"http": &rangehttp.HTTPDownloader{},
}

// Run executes one job with a live display on stdout.
func Run(ctx context.Context, job utils.RangeJob) error {
	outputMgr := output.NewManager()
	outputMgr.StartDisplay()
	defer outputMgr.StopDisplay()
	return RunWithManager(ctx, &job, outputMgr)
}

// RunWithManager validates, builds and downloads job, reporting each stage
// to outputMgr. The first failing stage ends the job.
func RunWithManager(ctx context.Context, job *utils.RangeJob, outputMgr *output.Manager) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.JobType == "" {
		job.JobType = jobTypeFor(job.URL)
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	logger := log.With().Str("op", "scheduler").Str("job", job.ID).Logger()
	taskID := outputMgr.RegisterTask(job.URL)

	fail := func(stage string, err error) error {
		logger.Error().Err(err).AnErr("kind", rangehttp.KindOf(err)).Str("stage", stage).Msg("Job failed")
		outputMgr.ReportError(taskID, err)
		outputMgr.SetMessage(taskID, fmt.Sprintf("%s failed for %s", stage, job.URL))
		return err
	}

	downloader, exists := downloaderRegistry[job.JobType]
	if !exists {
		return fail("Validation", fmt.Errorf("%w: unknown job type %q", rangehttp.ErrConfiguration, job.JobType))
	}

	outputMgr.SetMessage(taskID, fmt.Sprintf("Validating %s job", job.JobType))
	if err := downloader.ValidateJob(job); err != nil {
		return fail("Validation", err)
	}

	outputMgr.SetMessage(taskID, fmt.Sprintf("Probing %s", job.URL))
	if err := downloader.BuildJob(ctx, job); err != nil {
		return fail("Probe", err)
	}
	outputMgr.SetName(taskID, job.OutputPath)

	progressFunc := job.ProgressFunc
	job.ProgressFunc = func(downloaded, total int64) {
		outputMgr.SetProgress(taskID, downloaded, total)
		if progressFunc != nil {
			progressFunc(downloaded, total)
		}
	}
	outputMgr.SetStatus(taskID, output.StatusActive)
	outputMgr.SetMessage(taskID, fmt.Sprintf("Downloading %s in %v ranges", job.OutputPath, job.Metadata["rangeCount"]))
	logger.Debug().Str("url", job.URL).Str("output", job.OutputPath).Int64("chunkSize", job.ChunkSize).Msg("Starting download")
	if err := downloader.Download(ctx, job); err != nil {
		return fail("Download", err)
	}

	outputMgr.Complete(taskID, fmt.Sprintf("Completed %s", job.OutputPath))
	return nil
}

func jobTypeFor(link string) string {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsedURL.Scheme) {
	case "http", "https":
		return "http"
	}
	return parsedURL.Scheme
}
