package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	app_errors "flow-ai/chatsync/internal/errors"
	"flow-ai/chatsync/internal/interfaces"
)

// Client talks to the chatsync backend over HTTP. One value satisfies every
// collaborator contract the engine consumes.
type Client struct {
	http    *http.Client
	baseURL string
}

var (
	_ interfaces.ConversationStore = (*Client)(nil)
	_ interfaces.UploadAPI         = (*Client)(nil)
	_ interfaces.IndexingAPI       = (*Client)(nil)
	_ interfaces.SurfaceDetector   = (*Client)(nil)
)

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:3000/api/v1". A nil httpClient uses a client without a
// timeout, since chat replies are streamed for as long as generation runs.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends the request and returns the response when its status is 2xx.
// Any other status is drained, closed and translated to a sentinel error.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", app_errors.ErrTransport, req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}
	return resp, nil
}

// doJSON marshals in (when non-nil) as the request body and decodes the
// response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeInto(resp, out)
}

// decodeInto decodes a JSON body into out, or drains it when out is nil.
func decodeInto(resp *http.Response, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: could not decode response of %s %s: %w", app_errors.ErrTransport, resp.Request.Method, resp.Request.URL.Path, err)
	}
	return nil
}

const maxErrorBody = 4 << 10

// errorFromResponse maps a non-2xx response to one of the app sentinels.
func errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusPaymentRequired:
		sentinel = app_errors.ErrInsufficientCredits
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = app_errors.ErrPermission
	case http.StatusNotFound:
		sentinel = app_errors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = app_errors.ErrValidation
	case http.StatusConflict:
		sentinel = app_errors.ErrConflict
	default:
		switch {
		case strings.Contains(strings.ToLower(msg), "insufficient credits"):
			sentinel = app_errors.ErrInsufficientCredits
		case resp.StatusCode >= http.StatusInternalServerError:
			sentinel = app_errors.ErrInternal
		default:
			sentinel = app_errors.ErrTransport
		}
	}
	return fmt.Errorf("%w: api returned status %d: %s", sentinel, resp.StatusCode, msg)
}
