// Package gemini adapts the Google GenAI SDK to the narrow operations the
// catalog tooling needs: upload a document, wait until it can be referenced,
// ask a deterministic question about it, and clean it up afterwards.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"catalog_backend/platform/logger"

	"google.golang.org/genai"
)

const (
	defaultModel        = "gemini-2.5-flash"
	defaultPollInterval = 2 * time.Second
	defaultReadyTimeout = 2 * time.Minute
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("gemini: empty response")

// Config for the Gemini client.
type Config struct {
	APIKey       string
	Model        string
	PollInterval time.Duration
	ReadyTimeout time.Duration
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	// Logger receives cleanup failures. Nil discards them.
	Logger *logger.Logger
}

// File is a document stored in the Gemini file service.
type File struct {
	Name     string
	URI      string
	MIMEType string
}

// Client talks to the Gemini API. It is safe for concurrent use.
type Client struct {
	sdk          *genai.Client
	model        string
	pollInterval time.Duration
	readyTimeout time.Duration
	log          *logger.Logger
}

// NewClient creates a Gemini client bound to one model.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	sdk, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		sdk:          sdk,
		model:        cfg.Model,
		pollInterval: cfg.PollInterval,
		readyTimeout: cfg.ReadyTimeout,
		log:          cfg.Logger,
	}, nil
}

// Model returns the model name used for generation.
func (c *Client) Model() string {
	return c.model
}

// UploadFile stores the document and blocks until the service reports it as
// ACTIVE, the file fails processing, or the ready timeout elapses.
func (c *Client) UploadFile(ctx context.Context, r io.Reader, mimeType, displayName string) (*File, error) {
	uploaded, err := c.sdk.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: upload %q: %w", displayName, err)
	}

	getter := func(ctx context.Context, name string) (*genai.File, error) {
		return c.sdk.Files.Get(ctx, name, nil)
	}

	ready, err := waitUntilActive(ctx, getter, uploaded, c.pollInterval, c.readyTimeout)
	if err != nil {
		// The upload exists remotely even though it is unusable.
		discardUpload(context.WithoutCancel(ctx), c.DeleteFile, uploaded.Name, c.log)
		return nil, err
	}

	mime := ready.MIMEType
	if mime == "" {
		mime = mimeType
	}
	return &File{Name: ready.Name, URI: ready.URI, MIMEType: mime}, nil
}

func discardUpload(ctx context.Context, del func(ctx context.Context, name string) error, name string, log *logger.Logger) {
	if err := del(ctx, name); err != nil {
		log.Warn("failed to delete unusable upload", "name", name, "error", err)
	}
}

// DeleteFile removes an uploaded document.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	if _, err := c.sdk.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("gemini: delete %s: %w", name, err)
	}
	return nil
}

// Generate sends one user turn at temperature 0. When file is non-nil it is
// attached after the instruction text.
func (c *Client) Generate(ctx context.Context, prompt string, file *File) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if file != nil {
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}

	resp, err := c.sdk.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
