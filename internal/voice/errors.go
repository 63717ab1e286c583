package voice

import (
	"errors"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// Error taxonomy for the voice session. PermissionDenied and NotSupported are
// terminal for the current session; the rest are recoverable.
var (
	ErrPermissionDenied = errors.New("voice: microphone permission denied")
	ErrNotSupported     = errors.New("voice: speech recognition not supported")
	ErrCaptureFailure   = errors.New("voice: capture failure")
	ErrNetworkFailure   = errors.New("voice: conversation service failure")
	ErrPlaybackFailure  = errors.New("voice: playback failure")
	ErrSessionClosed    = errors.New("voice: session closed")
)

// ClassifyCaptureCause maps a recognizer error cause to the taxonomy and a
// user-facing message. Unrecognized causes map to a generic fallback; errors
// are always reported, never swallowed.
func ClassifyCaptureCause(cause string) (error, string) {
	switch cause {
	case repositories.CausePermissionDenied:
		return ErrPermissionDenied, "Microphone access was denied. Allow microphone access or switch to text mode."
	case repositories.CauseNotSupported:
		return ErrNotSupported, "Voice input is not supported here. Please switch to text mode."
	case repositories.CauseNoSpeech:
		return ErrCaptureFailure, "No speech was detected. Try speaking again."
	case repositories.CauseAborted:
		return ErrCaptureFailure, "Listening was interrupted."
	case repositories.CauseAudioCapture:
		return ErrCaptureFailure, "No microphone was found, or it is in use by another application."
	case repositories.CauseNetwork:
		return ErrNetworkFailure, "The speech service is unreachable. Check your connection and try again."
	default:
		return ErrCaptureFailure, "Something went wrong with voice input. Please try again."
	}
}

// Terminal reports whether an error ends the current voice session rather
// than being retried.
func Terminal(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotSupported)
}
