package metrics

import "time"

// Recorder is the interface for recording application events. Both the
// Prometheus-backed Metrics and NoopMetrics implement it, so the core
// never depends on a concrete sink.
type Recorder interface {
	// OAuth flow
	RecordAuthorizationStarted()
	RecordOAuthCallback(success bool)

	// Chunked media upload phases: "init", "append", "finalize"
	RecordUploadPhase(phase string, success bool, duration time.Duration)
	RecordUploadSegments(count int)

	// Publish (completion) attempts
	RecordPublishAttempt(success bool)
	RecordPublishRetry()

	// Upload lifecycle
	RecordUploadSubmitted()
	RecordUploadCompleted(status string, duration time.Duration)
	SetUploadsInFlight(count int)

	// HTTP server
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	IncHTTPInFlight()
	DecHTTPInFlight()
}
