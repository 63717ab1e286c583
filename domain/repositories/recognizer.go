package repositories

import "context"

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// Recognized capture error causes. Unknown causes fall through to a generic
// user-facing message in the voice core.
const (
	CausePermissionDenied = "permission-denied"
	CauseNotSupported     = "not-supported"
	CauseNoSpeech         = "no-speech"
	CauseAborted          = "aborted"
	CauseAudioCapture     = "audio-capture"
	CauseNetwork          = "network"
)

// RecognitionEvent is a single update from a recognition stream. Either a
// transcript update (interim or final) or an error with a cause string.
type RecognitionEvent struct {
	Text  string
	Final bool
	Err   error
	Cause string
}

// RecognitionError carries a capture error cause alongside the underlying
// error, letting callers map it onto their error taxonomy.
type RecognitionError struct {
	CauseCode string
	Err       error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return e.CauseCode
	}
	return e.CauseCode + ": " + e.Err.Error()
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Cause returns the capture error cause string
func (e *RecognitionError) Cause() string { return e.CauseCode }

// SpeechRecognizer abstracts a continuous speech-to-text service
type SpeechRecognizer interface {
	// Start opens a recognition stream. It fails with a permission or
	// capability error when the underlying service cannot capture audio.
	Start(ctx context.Context, config AudioConfig) (RecognitionStream, error)
}

// RecognitionStream is one live speech-to-text session
type RecognitionStream interface {
	// Feed sends raw audio to the recognizer
	Feed(data []byte) error
	// Events delivers transcript updates and errors. The channel is closed
	// when the stream terminates for any reason.
	Events() <-chan RecognitionEvent
	Close() error
}
