package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/anvargas/tiendaluz-core/api/responses"
	"github.com/anvargas/tiendaluz-core/internal/syncstore"
	pkgerrors "github.com/anvargas/tiendaluz-core/pkg/errors"
	"github.com/anvargas/tiendaluz-core/pkg/logger"
)

// SyncStore is the service surface the endpoint needs.
type SyncStore interface {
	CheckSecret(provided string) error
	Pull(ctx context.Context) (syncstore.StoredSnapshot, bool, error)
	Push(ctx context.Context, payload string) error
}

// SyncController serves the single sync endpoint of the wire contract.
type SyncController struct {
	store SyncStore
	logg  *logger.Logger
}

func NewSyncController(store SyncStore, logg *logger.Logger) *SyncController {
	return &SyncController{store: store, logg: logg}
}

type syncRequest struct {
	Action  string `json:"action"`
	Secret  string `json:"secret"`
	Payload string `json:"payload"`
}

// Handle accepts both request shapes: a JSON body on POST and query
// parameters on GET (pull only).
func (c *SyncController) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := c.decode(r)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if err := c.store.CheckSecret(req.Secret); err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case "pull":
		snap, found, err := c.store.Pull(ctx)
		if err != nil {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
		if !found {
			responses.WriteEmpty(w)
			return
		}
		responses.WriteSuccess(w, snap.Payload)
	case "push":
		if r.Method != http.MethodPost {
			responses.WriteError(ctx, c.logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "push requires a request body"))
			return
		}
		if err := c.store.Push(ctx, req.Payload); err != nil {
			responses.WriteError(ctx, c.logg, w, err)
			return
		}
		responses.WriteSuccess(w, "")
	default:
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeValidation, "unknown action"))
	}
}

func (c *SyncController) decode(r *http.Request) (syncRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return syncRequest{
			Action: q.Get("action"),
			Secret: q.Get("secret"),
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		return syncRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading request body")
	}
	var req syncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return syncRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed request body")
	}
	return req, nil
}
