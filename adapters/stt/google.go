package stt

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/6ogo/Brainy-sub002/domain/repositories"
)

// GoogleRecognizer implements SpeechRecognizer on Google Cloud Speech-to-Text
// streaming recognition
type GoogleRecognizer struct{}

func NewGoogleRecognizer() *GoogleRecognizer {
	return &GoogleRecognizer{}
}

// Start opens a streaming recognition session. Interim results are enabled so
// the utterance debouncer sees transcript updates as the student speaks, and
// single-utterance mode is off because continuous capture owns the lifecycle.
func (g *GoogleRecognizer) Start(ctx context.Context, config repositories.AudioConfig) (repositories.RecognitionStream, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, recognitionError(err, "failed to create speech client")
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, recognitionError(err, "failed to open recognize stream")
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, &repositories.RecognitionError{
			CauseCode: repositories.CauseNotSupported,
			Err:       err,
		}
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				InterimResults:  true,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, recognitionError(err, "failed to send streaming config")
	}

	s := &googleStream{
		client: client,
		stream: stream,
		events: make(chan repositories.RecognitionEvent, 16),
	}
	go s.receive()
	return s, nil
}

type googleStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	events chan repositories.RecognitionEvent

	mu     sync.Mutex
	closed bool
}

// Feed sends one audio frame to the recognizer
func (s *googleStream) Feed(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("recognition stream closed")
	}
	if err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return recognitionError(err, "failed to send audio")
	}
	return nil
}

func (s *googleStream) Events() <-chan repositories.RecognitionEvent {
	return s.events
}

// Close signals end of audio. The receive goroutine drains remaining results
// and closes the event channel.
func (s *googleStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.stream.CloseSend()
}

func (s *googleStream) receive() {
	defer close(s.events)
	defer s.client.Close()

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				// teardown race, not a real failure
				return
			}
			s.events <- repositories.RecognitionEvent{
				Err:   err,
				Cause: causeFromGRPC(err),
			}
			return
		}
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			s.events <- repositories.RecognitionEvent{
				Text:  result.Alternatives[0].Transcript,
				Final: result.IsFinal,
			}
		}
	}
}

// recognitionError wraps a transport error with its mapped cause
func recognitionError(err error, msg string) error {
	return &repositories.RecognitionError{
		CauseCode: causeFromGRPC(err),
		Err:       fmt.Errorf("%s: %w", msg, err),
	}
}

// causeFromGRPC maps gRPC status codes onto capture error causes
func causeFromGRPC(err error) string {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return repositories.CausePermissionDenied
	case codes.Unimplemented, codes.InvalidArgument:
		return repositories.CauseNotSupported
	case codes.Canceled:
		return repositories.CauseAborted
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return repositories.CauseNetwork
	default:
		return repositories.CauseAudioCapture
	}
}

// audioEncoding converts the configured encoding name to the API enum
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "linear16", "LINEAR16", "WAV":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "flac", "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "mulaw", "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "ogg_opus", "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "webm_opus", "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
