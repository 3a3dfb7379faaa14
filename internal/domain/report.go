package domain

import "time"

// Stage names a step of the per-post pipeline.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageThread   Stage = "thread"
	StageScrape   Stage = "scrape"
	StageAnalysis Stage = "analysis"
	StageLedger   Stage = "ledger"
)

// StageFailure records a recoverable error that did not stop the batch.
type StageFailure struct {
	Stage Stage
	Err   error
}

// PostReport gathers everything produced for one post in a run.
type PostReport struct {
	Feed      string
	Rank      int
	Post      Post
	Comments  []Comment
	Scraped   *ScrapedContent
	Analysis  AnalysisResult
	Failures  []StageFailure
	Processed time.Time
}

// Analyzed reports whether the analysis stage produced text.
func (r PostReport) Analyzed() bool {
	return r.Analysis != ""
}

// Failed reports whether the given stage recorded a failure.
func (r PostReport) Failed(stage Stage) bool {
	for _, f := range r.Failures {
		if f.Stage == stage {
			return true
		}
	}
	return false
}

// ProcessingStatus enumerates ledger states.
type ProcessingStatus string

const (
	StatusAnalyzed       ProcessingStatus = "analyzed"
	StatusAnalysisFailed ProcessingStatus = "analysis_failed"
)

// ProcessedPost is the ledger row kept per analyzed post. It never holds
// fetched content.
type ProcessedPost struct {
	PostID    string
	Feed      string
	Permalink string
	Score     int
	Status    ProcessingStatus
	RunID     string
}
