package video

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/user"
)

type Endpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *Endpoints {
	return &Endpoints{service: service}
}

// GetVideo handles GET /videos/{videoID}
func (e *Endpoints) GetVideo(ctx *fasthttp.RequestCtx) {
	videoID, _ := ctx.UserValue("videoID").(string)

	detail, err := e.service.GetDetail(ctx, videoID, viewerFrom(ctx))
	if err != nil {
		writeLookupError(ctx, err, "Failed to get video")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, detail)
}

// ListUserVideos handles GET /users/{userID}/videos
// Query parameters:
//   - query (optional): case-insensitive title filter
func (e *Endpoints) ListUserVideos(ctx *fasthttp.RequestCtx) {
	ownerID, _ := ctx.UserValue("userID").(string)
	titleQuery := string(ctx.QueryArgs().Peek("query"))

	records, err := e.service.ListByOwner(ctx, ownerID, viewerFrom(ctx), titleQuery)
	if err != nil {
		log.Error().Err(err).Str("userId", ownerID).Msg("Failed to list videos")
		ctx.Error("Failed to list videos", fasthttp.StatusInternalServerError)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"videos": records,
	})
}

// RecordView handles POST /videos/{videoID}/views
func (e *Endpoints) RecordView(ctx *fasthttp.RequestCtx) {
	videoID, _ := ctx.UserValue("videoID").(string)

	views, err := e.service.RecordView(ctx, videoID, viewerFrom(ctx))
	if err != nil {
		writeLookupError(ctx, err, "Failed to record view")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"videoId": videoID,
		"views":   views,
	})
}

func viewerFrom(ctx *fasthttp.RequestCtx) *user.User {
	viewer, _ := ctx.UserValue("user").(*user.User)
	return viewer
}

func writeLookupError(ctx *fasthttp.RequestCtx, err error, message string) {
	if errors.Is(err, ErrNotFound) {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg(message)
	ctx.Error(message, fasthttp.StatusInternalServerError)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		ctx.Error("Failed to encode response", fasthttp.StatusInternalServerError)
	}
}
