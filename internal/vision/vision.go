// Package vision delegates image analysis to two hosted APIs: a Roboflow
// object-detection model for weapons and Plate Recognizer for licence plates.
//
// Neither client ever returns an error to its caller. A failed call yields
// the neutral result (low risk, no weapon, no plate) tagged OutcomeDegraded,
// and an unconfigured client yields OutcomeSkipped.
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeSkipped  Outcome = "skipped"
)

const (
	ProviderRoboflow        = "roboflow"
	ProviderPlateRecognizer = "platerecognizer"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// NewClient returns the HTTP client shared by both providers.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// postImage sends image as the single multipart field and returns the body
// of a 2xx response.
func postImage(ctx context.Context, client *http.Client, endpoint, field string, header http.Header, image []byte) ([]byte, int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "image.jpg")
	if err != nil {
		return nil, 0, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, 0, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, 0, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, redact(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, resp.StatusCode, nil
}

// redact strips the query string from transport errors, which would
// otherwise carry the Roboflow API key into logs.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			ue.URL = u.String()
		}
	}
	return err
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
