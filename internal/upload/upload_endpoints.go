package upload

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/selection"
	"github.com/vidshare/vidshare_server/internal/user"
)

type Endpoints struct {
	drafts       *DraftStore
	orchestrator *Orchestrator
	previews     *selection.PreviewRegistry
}

func NewEndpoints(drafts *DraftStore, orchestrator *Orchestrator, previews *selection.PreviewRegistry) *Endpoints {
	return &Endpoints{
		drafts:       drafts,
		orchestrator: orchestrator,
		previews:     previews,
	}
}

// GetDraft handles GET /uploads/draft
func (e *Endpoints) GetDraft(ctx *fasthttp.RequestCtx) {
	draft, ok := e.draftFor(ctx)
	if !ok {
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, draft.View())
}

// UpdateDraft handles PUT /uploads/draft with the form fields as JSON.
func (e *Endpoints) UpdateDraft(ctx *fasthttp.RequestCtx) {
	draft, ok := e.draftFor(ctx)
	if !ok {
		return
	}

	var fields FormFields
	if err := json.Unmarshal(ctx.PostBody(), &fields); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid request body")
		return
	}

	if err := draft.UpdateForm(fields); err != nil {
		writeError(ctx, statusFor(err), UserMessage(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, draft.View())
}

// SelectVideo handles POST /uploads/video (multipart field "file").
func (e *Endpoints) SelectVideo(ctx *fasthttp.RequestCtx) {
	e.selectFile(ctx, (*Draft).SelectVideo)
}

// SelectThumbnail handles POST /uploads/thumbnail (multipart field "file").
func (e *Endpoints) SelectThumbnail(ctx *fasthttp.RequestCtx) {
	e.selectFile(ctx, (*Draft).SelectThumbnail)
}

// ClearVideo handles DELETE /uploads/video
func (e *Endpoints) ClearVideo(ctx *fasthttp.RequestCtx) {
	e.clearFile(ctx, (*Draft).ClearVideo)
}

// ClearThumbnail handles DELETE /uploads/thumbnail
func (e *Endpoints) ClearThumbnail(ctx *fasthttp.RequestCtx) {
	e.clearFile(ctx, (*Draft).ClearThumbnail)
}

// Submit handles POST /uploads/submit
func (e *Endpoints) Submit(ctx *fasthttp.RequestCtx) {
	draft, ok := e.draftFor(ctx)
	if !ok {
		return
	}

	record, err := e.orchestrator.Submit(ctx, draft, &ctx.Request.Header)
	if err != nil {
		writeError(ctx, statusFor(err), UserMessage(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, record)
}

// GetPreview handles GET /previews/{ref}
func (e *Endpoints) GetPreview(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := ctx.UserValue("user").(*user.User)
	if !ok || authenticatedUser == nil {
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return
	}
	ref, _ := ctx.UserValue("previewRef").(string)

	reader, preview, err := e.previews.Open(ctx, ref, authenticatedUser.ID)
	if err != nil {
		if errors.Is(err, selection.ErrPreviewNotFound) {
			ctx.Error("Not Found", fasthttp.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("ref", ref).Msg("Failed to open preview")
		ctx.Error("Failed to retrieve preview", fasthttp.StatusInternalServerError)
		return
	}
	defer reader.Close()

	ctx.SetContentType(preview.ContentType)
	ctx.Response.Header.Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(ctx, reader); err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("Failed to stream preview")
	}
}

type selectFunc func(d *Draft, ctx context.Context, raw selection.RawFile) (*selection.SelectedFile, error)

func (e *Endpoints) selectFile(ctx *fasthttp.RequestCtx, selectInto selectFunc) {
	draft, ok := e.draftFor(ctx)
	if !ok {
		return
	}

	contentType := string(ctx.Request.Header.ContentType())
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		writeError(ctx, fasthttp.StatusBadRequest, "Content-Type must be multipart/form-data")
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "No file uploaded")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		writeError(ctx, fasthttp.StatusInternalServerError, "Failed to open uploaded file")
		return
	}
	defer file.Close()

	raw := selection.RawFile{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}

	if _, err := selectInto(draft, ctx, raw); err != nil {
		message := draft.LastError()
		if errors.Is(err, ErrSubmissionInProgress) || errors.Is(err, ErrDraftClosed) {
			message = UserMessage(err)
		}
		writeError(ctx, statusFor(err), message)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, draft.View())
}

func (e *Endpoints) clearFile(ctx *fasthttp.RequestCtx, clear func(d *Draft, ctx context.Context) error) {
	draft, ok := e.draftFor(ctx)
	if !ok {
		return
	}
	if err := clear(draft, ctx); err != nil {
		writeError(ctx, statusFor(err), UserMessage(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, draft.View())
}

func (e *Endpoints) draftFor(ctx *fasthttp.RequestCtx) (*Draft, bool) {
	authenticatedUser, ok := ctx.UserValue("user").(*user.User)
	if !ok || authenticatedUser == nil {
		log.Error().Msg("Failed to get authenticated user from context")
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return nil, false
	}
	return e.drafts.Get(authenticatedUser.ID), true
}

func statusFor(err error) int {
	var validationErr *ValidationError
	var transportErr *TransportError
	var authErr *AuthorizationError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, selection.ErrFileTooLarge),
		errors.Is(err, selection.ErrWrongMediaType):
		return fasthttp.StatusBadRequest
	case errors.As(err, &authErr):
		return fasthttp.StatusUnauthorized
	case errors.Is(err, ErrSubmissionInProgress), errors.Is(err, ErrDraftClosed):
		return fasthttp.StatusConflict
	case errors.As(err, &transportErr):
		return fasthttp.StatusBadGateway
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, map[string]interface{}{
		"error": message,
	})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		ctx.Error("Failed to encode response", fasthttp.StatusInternalServerError)
	}
}
