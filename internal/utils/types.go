package utils

import "context"

type Downloader interface {
	ValidateJob(job *RangeJob) error
	BuildJob(ctx context.Context, job *RangeJob) error
	Download(ctx context.Context, job *RangeJob) error
}

type RangeJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	ChunkSize        int64
	ProgressFunc     func(downloaded, total int64)
	Metadata         map[string]any
	HTTPClientConfig HTTPClientConfig
	// Client overrides the client built from HTTPClientConfig.
	Client HTTPDoer
}

// HTTPClient returns the job's transport, building one from the job's
// client config when none was injected.
func (j *RangeJob) HTTPClient() HTTPDoer {
	if j.Client == nil {
		j.Client = NewHTTPClient(j.HTTPClientConfig)
	}
	return j.Client
}
