package health

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB; nil means the memory repositories are in use.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthEndpoints struct {
	version string
	db      Pinger
}

func NewEndpoints(version string, db Pinger) *HealthEndpoints {
	return &HealthEndpoints{
		version: version,
		db:      db,
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Database: "memory",
	}
	statusCode := fasthttp.StatusOK

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(pingCtx); err != nil {
			log.Error().Err(err).Msg("Database ping failed")
			response.Status = "degraded"
			response.Database = "unreachable"
			statusCode = fasthttp.StatusServiceUnavailable
		} else {
			response.Database = "ok"
		}
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(statusCode)
	ctx.SetBody(responseJSON)
}
