// Package transcribe turns cached audio into transcripts. It submits audio
// to an external speech-to-text provider, polls the job to completion,
// stores the raw result alongside the source audio, and renders derived
// textual views from it.
package transcribe

import (
	"errors"
	"fmt"
)

// Status is a provider job state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Word is one recognized word with millisecond timestamps.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Result is the provider's transcription payload. This is the canonical
// form persisted in the cache; every derived view is computed from it.
type Result struct {
	ID            string  `json:"id"`
	Status        Status  `json:"status"`
	Text          string  `json:"text"`
	Words         []Word  `json:"words,omitempty"`
	AudioDuration float64 `json:"audio_duration"`
	Confidence    float64 `json:"confidence"`
	Error         string  `json:"error,omitempty"`
}

// ErrTimeout is returned when a job does not reach a terminal state within
// the polling window. The job may still complete provider-side; a later
// request starts a new one.
var ErrTimeout = errors.New("transcribe: polling window exceeded")

// FailedError reports a job the provider marked as failed.
type FailedError struct {
	ID      string
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("transcribe: job %s failed: %s", e.ID, e.Message)
}
