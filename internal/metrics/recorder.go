package metrics

import "time"

// RegenerationResult labels how a pending regeneration ended.
type RegenerationResult string

const (
	RegenerationPatched  RegenerationResult = "patched"
	RegenerationFallback RegenerationResult = "fallback"
	RegenerationFailed   RegenerationResult = "failed"
	RegenerationTimeout  RegenerationResult = "timeout"
	RegenerationLost     RegenerationResult = "lost"
	RegenerationAbandon  RegenerationResult = "abandoned"
)

// Recorder defines observability hooks for the coordinator. All methods must be safe to
// call concurrently.
type Recorder interface {
	// IncPatchOutcome counts patch attempts by outcome and, for fallbacks, the error
	// category that caused them.
	IncPatchOutcome(outcome, reason string)
	ObservePatchDuration(d time.Duration)
	ObserveRegeneration(result RegenerationResult, d time.Duration)
	SetPending(n int)
	// IncDroppedCompletion counts section completions that matched no pending request.
	IncDroppedCompletion(reason string)
	IncInbound(messageType string)
	IncBusyRefusal()
	SetRevision(rev uint64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncPatchOutcome(string, string)                        {}
func (NoopRecorder) ObservePatchDuration(time.Duration)                    {}
func (NoopRecorder) ObserveRegeneration(RegenerationResult, time.Duration) {}
func (NoopRecorder) SetPending(int)                                        {}
func (NoopRecorder) IncDroppedCompletion(string)                           {}
func (NoopRecorder) IncInbound(string)                                     {}
func (NoopRecorder) IncBusyRefusal()                                       {}
func (NoopRecorder) SetRevision(uint64)                                    {}
