package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder.
// All methods are empty and do nothing, providing zero overhead when
// metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthorizationStarted()                                       {}
func (n *NoopMetrics) RecordOAuthCallback(success bool)                                  {}
func (n *NoopMetrics) RecordUploadPhase(phase string, success bool, d time.Duration)     {}
func (n *NoopMetrics) RecordUploadSegments(count int)                                    {}
func (n *NoopMetrics) RecordPublishAttempt(success bool)                                 {}
func (n *NoopMetrics) RecordPublishRetry()                                               {}
func (n *NoopMetrics) RecordUploadSubmitted()                                            {}
func (n *NoopMetrics) RecordUploadCompleted(status string, d time.Duration)              {}
func (n *NoopMetrics) SetUploadsInFlight(count int)                                      {}
func (n *NoopMetrics) RecordHTTPRequest(method, path, status string, d time.Duration)    {}
func (n *NoopMetrics) IncHTTPInFlight()                                                  {}
func (n *NoopMetrics) DecHTTPInFlight()                                                  {}
