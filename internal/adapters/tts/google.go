// Package tts fetches synthesized speech from the Google Translate TTS
// endpoint and returns the MP3 bytes.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Requests longer than this get truncated; the endpoint rejects long query
// strings anyway.
const maxTextLen = 200

type Client struct {
	base  string
	httpc *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = "https://translate.google.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:  base,
		httpc: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("tts: empty text")
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	if lang == "" {
		lang = "en"
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts: unexpected status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts: empty audio")
	}
	return audio, nil
}
