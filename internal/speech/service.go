// Package speech relays text-to-speech requests to the Narakeet API and
// stores the resulting MP3 files under a locally served audio directory.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxTextLength is the provider's input cap, enforced before forwarding.
const MaxTextLength = 1000

const defaultBaseURL = "https://api.narakeet.com"

var (
	errMissingAPIKey   = errors.New("speech: api key is required")
	errMissingAudioDir = errors.New("speech: audio directory is required")

	// ErrEmptyText indicates the request had no text to synthesize.
	ErrEmptyText = errors.New("speech: text is required")
	// ErrEmptyVoice indicates the request named no voice.
	ErrEmptyVoice = errors.New("speech: voice id is required")
	// ErrTextTooLong indicates the text exceeds the provider input cap.
	ErrTextTooLong = fmt.Errorf("speech: text must be under %d characters", MaxTextLength)
)

// ProviderError reports a non-success response from the TTS provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech: provider returned status %d: %s", e.StatusCode, e.Message)
}

// ServiceConfig collects the dependencies for constructing a Service.
type ServiceConfig struct {
	APIKey        string
	BaseURL       string
	AudioDir      string
	PublicBaseURL string
	HTTPClient    *http.Client
	Clock         func() time.Time
	Logger        *zap.Logger
}

// Service synthesizes speech samples and exposes them as static audio files.
type Service struct {
	apiKey        string
	baseURL       string
	audioDir      string
	publicBaseURL string
	httpClient    *http.Client
	clock         func() time.Time
	logger        *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}
	if strings.TrimSpace(cfg.AudioDir) == "" {
		return nil, errMissingAudioDir
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		audioDir:      cfg.AudioDir,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		httpClient:    httpClient,
		clock:         clock,
		logger:        logger,
	}, nil
}

// Synthesize forwards text to the provider for the given voice, stores the
// returned MP3, and returns the public URL of the stored file.
func (s *Service) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if strings.TrimSpace(voiceID) == "" {
		return "", ErrEmptyVoice
	}
	if len(text) > MaxTextLength {
		return "", ErrTextTooLong
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/mp3?voice=%s", s.baseURL, url.QueryEscape(voiceID))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return "", err
	}
	request.Header.Set("x-api-key", s.apiKey)
	request.Header.Set("Content-Type", "text/plain")
	request.Header.Set("Accept", "application/octet-stream")

	response, err := s.httpClient.Do(request)
	if err != nil {
		s.logger.Error("tts request failed", zap.String("voice_id", voiceID), zap.Error(err))
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		providerErr := &ProviderError{StatusCode: response.StatusCode, Message: strings.TrimSpace(string(body))}
		s.logger.Error("tts provider error",
			zap.String("voice_id", voiceID),
			zap.Int("status", response.StatusCode))
		return "", providerErr
	}

	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("audio-%d-%s.mp3", s.clock().UnixMilli(), sanitizeVoiceID(voiceID))
	filePath := filepath.Join(s.audioDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		file.Close()
		os.Remove(filePath)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	audioURL := s.publicBaseURL + "/audio/" + filename
	s.logger.Info("audio generated",
		zap.String("voice_id", voiceID),
		zap.String("audio_url", audioURL))
	return audioURL, nil
}

// sanitizeVoiceID keeps generated filenames free of path separators.
func sanitizeVoiceID(voiceID string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-", " ", "-")
	return replacer.Replace(voiceID)
}
