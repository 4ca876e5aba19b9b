package status

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

type DraftStats interface {
	Stats() (drafts, submitting int)
}

type ConnectionStats interface {
	GetStats() (totalClients, totalUsers int)
}

type StatusEndpoints struct {
	version     string
	drafts      DraftStats
	connections ConnectionStats
}

func NewEndpoints(version string, drafts DraftStats, connections ConnectionStats) *StatusEndpoints {
	return &StatusEndpoints{
		version:     version,
		drafts:      drafts,
		connections: connections,
	}
}

type StatusResponse struct {
	Health            string `json:"health"`
	Version           string `json:"version"`
	Drafts            int    `json:"drafts"`
	Submitting        int    `json:"submitting"`
	SocketConnections int    `json:"socketConnections"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Health:  "OK",
		Version: se.version,
	}
	response.Drafts, response.Submitting = se.drafts.Stats()
	response.SocketConnections, _ = se.connections.GetStats()

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(responseJSON)
}
