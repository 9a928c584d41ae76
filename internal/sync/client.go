package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// Client talks to the remote store. Payload strings are opaque codec tokens.
type Client interface {
	Push(ctx context.Context, endpoint, secret, payload string) error
	// Pull returns the stored payload; found is false when the remote has
	// nothing stored yet.
	Pull(ctx context.Context, endpoint, secret string) (payload string, found bool, err error)
}

type wireRequest struct {
	Action  string `json:"action"`
	Secret  string `json:"secret,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type wireResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// HTTPClient is the production Client over the single-endpoint wire
// contract.
type HTTPClient struct {
	http *http.Client
	logg *logger.Logger
}

func NewHTTPClient(timeout time.Duration, logg *logger.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		http: &http.Client{Timeout: timeout},
		logg: logg,
	}
}

func (c *HTTPClient) Push(ctx context.Context, endpoint, secret, payload string) error {
	resp, err := c.roundTrip(ctx, endpoint, wireRequest{Action: "push", Secret: secret, Payload: payload})
	if err != nil {
		return err
	}
	if resp.Status != "success" {
		return statusError(resp)
	}
	return nil
}

func (c *HTTPClient) Pull(ctx context.Context, endpoint, secret string) (string, bool, error) {
	resp, err := c.roundTrip(ctx, endpoint, wireRequest{Action: "pull", Secret: secret})
	if err != nil {
		return "", false, err
	}
	// An empty object means the remote has nothing stored yet.
	if resp.Status == "" && resp.Payload == "" {
		return "", false, nil
	}
	if resp.Status != "success" {
		return "", false, statusError(resp)
	}
	return resp.Payload, true, nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, endpoint string, reqBody wireRequest) (wireResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return wireResponse{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding sync request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return wireResponse{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "building sync request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return wireResponse{}, pkgerrors.Wrap(pkgerrors.CodeTransport, err, "remote store unreachable")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 32<<20))
	if err != nil {
		return wireResponse{}, pkgerrors.Wrap(pkgerrors.CodeTransport, err, "reading sync response")
	}

	var resp wireResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &resp); err != nil {
			return wireResponse{}, pkgerrors.Wrap(pkgerrors.CodeTransport, err,
				fmt.Sprintf("malformed sync response (http %d)", res.StatusCode))
		}
	}
	return resp, nil
}

func statusError(resp wireResponse) error {
	switch resp.Status {
	case "busy":
		return pkgerrors.New(pkgerrors.CodeBusy, "remote store is busy")
	default:
		msg := resp.Message
		if msg == "" {
			msg = "remote store rejected the request"
		}
		return pkgerrors.New(pkgerrors.CodeTransport, msg)
	}
}
