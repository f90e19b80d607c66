package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T, provider *httptest.Server) *Service {
	t.Helper()

	service, err := NewService(ServiceConfig{
		APIKey:        "test-key",
		BaseURL:       provider.URL,
		AudioDir:      t.TempDir(),
		PublicBaseURL: "http://localhost:3001",
		HTTPClient:    provider.Client(),
		Clock:         func() time.Time { return time.UnixMilli(1750000000000) },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestNewServiceRequiresAPIKey(t *testing.T) {
	_, err := NewService(ServiceConfig{AudioDir: t.TempDir()})
	if err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestNewServiceRequiresAudioDir(t *testing.T) {
	_, err := NewService(ServiceConfig{APIKey: "test-key"})
	if err == nil {
		t.Fatalf("expected error for missing audio dir")
	}
}

func TestSynthesizeValidatesInput(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("provider should not be called for invalid input")
	}))
	defer provider.Close()
	service := newTestService(t, provider)

	if _, err := service.Synthesize(context.Background(), "   ", "brendan"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := service.Synthesize(context.Background(), "hello", ""); !errors.Is(err, ErrEmptyVoice) {
		t.Fatalf("expected ErrEmptyVoice, got %v", err)
	}
	long := strings.Repeat("a", MaxTextLength+1)
	if _, err := service.Synthesize(context.Background(), long, "brendan"); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}
}

func TestSynthesizeStoresAudioAndReturnsURL(t *testing.T) {
	var gotPath, gotVoice, gotKey, gotBody string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVoice = r.URL.Query().Get("voice")
		gotKey = r.Header.Get("x-api-key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte("mp3-bytes"))
	}))
	defer provider.Close()

	audioDir := t.TempDir()
	service, err := NewService(ServiceConfig{
		APIKey:        "test-key",
		BaseURL:       provider.URL,
		AudioDir:      audioDir,
		PublicBaseURL: "http://localhost:3001",
		HTTPClient:    provider.Client(),
		Clock:         func() time.Time { return time.UnixMilli(1750000000000) },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	audioURL, err := service.Synthesize(context.Background(), "Hello there.", "brendan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/text-to-speech/mp3" {
		t.Fatalf("unexpected provider path: %q", gotPath)
	}
	if gotVoice != "brendan" {
		t.Fatalf("unexpected voice parameter: %q", gotVoice)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header: %q", gotKey)
	}
	if gotBody != "Hello there." {
		t.Fatalf("unexpected request body: %q", gotBody)
	}

	expectedName := fmt.Sprintf("audio-%d-brendan.mp3", int64(1750000000000))
	if audioURL != "http://localhost:3001/audio/"+expectedName {
		t.Fatalf("unexpected audio url: %q", audioURL)
	}
	stored, err := os.ReadFile(filepath.Join(audioDir, expectedName))
	if err != nil {
		t.Fatalf("expected audio file on disk: %v", err)
	}
	if string(stored) != "mp3-bytes" {
		t.Fatalf("unexpected stored audio: %q", stored)
	}
}

func TestSynthesizeSanitizesVoiceIDInFilename(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3"))
	}))
	defer provider.Close()
	service := newTestService(t, provider)

	audioURL, err := service.Synthesize(context.Background(), "hi", "../evil voice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(audioURL, "..") || strings.Contains(audioURL, " ") {
		t.Fatalf("voice id leaked into filename unsanitized: %q", audioURL)
	}
}

func TestSynthesizeWrapsProviderFailure(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad key"))
	}))
	defer provider.Close()
	service := newTestService(t, provider)

	_, err := service.Synthesize(context.Background(), "hello", "brendan")
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", providerErr.StatusCode)
	}
	if providerErr.Message != "bad key" {
		t.Fatalf("unexpected message: %q", providerErr.Message)
	}
}
