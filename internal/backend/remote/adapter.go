package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docsaga/internal/backend"
)

// Adapter speaks JSON over HTTP to a remote backend service (the vector index
// and the graph store run out of process). One Adapter instance fronts one
// backend kind at one base URL.
type Adapter struct {
	kind    backend.Kind
	baseURL string
	client  *http.Client
}

var _ backend.Adapter = (*Adapter)(nil)

// New constructs a remote adapter. The HTTP transport is instrumented so each
// backend call shows up in traces.
func New(kind backend.Kind, baseURL string) (*Adapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%s backend base url is required", kind)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid %s backend url: %w", kind, err)
	}
	return &Adapter{
		kind:    kind,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}, nil
}

func (a *Adapter) Kind() backend.Kind { return a.kind }

func (a *Adapter) Create(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	return a.call(ctx, http.MethodPost, "/documents/"+documentID, payload)
}

func (a *Adapter) Read(ctx context.Context, documentID string) backend.Result {
	return a.call(ctx, http.MethodGet, "/documents/"+documentID, nil)
}

func (a *Adapter) Update(ctx context.Context, documentID string, payload map[string]any) backend.Result {
	return a.call(ctx, http.MethodPatch, "/documents/"+documentID, payload)
}

func (a *Adapter) Delete(ctx context.Context, documentID string, opts backend.DeleteOptions) backend.Result {
	mode := opts.Mode
	if mode == "" {
		mode = backend.DeleteSoft
	}
	return a.call(ctx, http.MethodDelete, "/documents/"+documentID+"?mode="+string(mode), nil)
}

// call performs one HTTP exchange and maps the response onto the Result
// variants: 2xx is applied, 503 and transport-level unreachability are
// unavailable (skip), everything else is a failure.
func (a *Adapter) call(ctx context.Context, method, path string, payload map[string]any) backend.Result {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return backend.Failure(err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return backend.Failure(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return backend.Unavailable(fmt.Sprintf("%s backend not available: %v", a.kind, err))
		}
		return backend.Failure(&backend.OperationError{Backend: a.kind, Operation: method, Cause: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return backend.Failure(&backend.OperationError{Backend: a.kind, Operation: method, Cause: err})
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return backend.Unavailable(fmt.Sprintf("%s backend not available (503)", a.kind))
	}

	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			decoded = nil
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decoded != nil {
			if e, ok := decoded["error"].(string); ok && e != "" {
				msg = e
			}
		}
		// Legacy services still report a missing backend through the error text.
		return backend.FromLegacyError(&backend.OperationError{
			Backend:   a.kind,
			Operation: method,
			Cause:     fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		})
	}

	if decoded == nil {
		decoded = map[string]any{}
	}
	if _, ok := decoded["success"]; !ok {
		decoded["success"] = true
	}
	return backend.Applied(decoded)
}

func isUnreachable(err error) bool {
	if strings.Contains(err.Error(), "connection refused") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
