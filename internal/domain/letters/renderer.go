package letters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Renderer turns assembled HTML into PDF bytes. The production
// implementation talks to an external headless-chromium service; render
// failures are terminal for the request, never retried.
type Renderer interface {
	Render(ctx context.Context, html string, opts Options) ([]byte, error)
}

// ChromiumRenderer posts HTML to a render service and reads back the PDF.
type ChromiumRenderer struct {
	BaseURL string
	Client  *http.Client
}

func NewChromiumRenderer(baseURL string, timeout time.Duration) *ChromiumRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChromiumRenderer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type renderRequest struct {
	HTML    string  `json:"html"`
	Options Options `json:"options"`
}

func (r *ChromiumRenderer) Render(ctx context.Context, html string, opts Options) ([]byte, error) {
	payload, err := json.Marshal(renderRequest{HTML: html, Options: opts})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused, then fail.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: render service returned %d", ErrRenderingFailed, resp.StatusCode)
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderingFailed, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrRenderingFailed)
	}
	return pdf, nil
}
