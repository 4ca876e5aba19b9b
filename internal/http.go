package internal

import (
	"strings"

	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/health"
	"github.com/vidshare/vidshare_server/internal/middleware"
	"github.com/vidshare/vidshare_server/internal/status"
	"github.com/vidshare/vidshare_server/internal/upload"
	"github.com/vidshare/vidshare_server/internal/user"
	"github.com/vidshare/vidshare_server/internal/video"
	"github.com/vidshare/vidshare_server/internal/websocket"
)

type Endpoints struct {
	Health  *health.HealthEndpoints
	Status  *status.StatusEndpoints
	Uploads *upload.Endpoints
	Videos  *video.Endpoints
	Socket  *websocket.Handler
}

func NewRequestHandler(config *Config, userService *user.UserService, endpoints Endpoints) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(userService)
	corsMiddleware := middleware.NewCORSMiddleware(config.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/health":
			endpoints.Health.Health(ctx)
		case path == "/status":
			authMiddleware.RequireAuth(endpoints.Status.Status)(ctx)

		case path == "/uploads/draft":
			switch method {
			case fasthttp.MethodGet:
				authMiddleware.RequireAuth(endpoints.Uploads.GetDraft)(ctx)
			case fasthttp.MethodPut:
				authMiddleware.RequireAuth(endpoints.Uploads.UpdateDraft)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/uploads/video":
			switch method {
			case fasthttp.MethodPost:
				authMiddleware.RequireAuth(endpoints.Uploads.SelectVideo)(ctx)
			case fasthttp.MethodDelete:
				authMiddleware.RequireAuth(endpoints.Uploads.ClearVideo)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/uploads/thumbnail":
			switch method {
			case fasthttp.MethodPost:
				authMiddleware.RequireAuth(endpoints.Uploads.SelectThumbnail)(ctx)
			case fasthttp.MethodDelete:
				authMiddleware.RequireAuth(endpoints.Uploads.ClearThumbnail)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case path == "/uploads/submit":
			if method == fasthttp.MethodPost {
				authMiddleware.RequireAuth(endpoints.Uploads.Submit)(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case strings.HasPrefix(path, "/previews/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 && parts[2] != "" {
				ctx.SetUserValue("previewRef", parts[2])
				authMiddleware.RequireAuth(endpoints.Uploads.GetPreview)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case strings.HasPrefix(path, "/videos/") && strings.HasSuffix(path, "/views"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "views" && method == fasthttp.MethodPost {
				ctx.SetUserValue("videoID", parts[2])
				authMiddleware.OptionalAuth(endpoints.Videos.RecordView)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case strings.HasPrefix(path, "/videos/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 && parts[2] != "" && method == fasthttp.MethodGet {
				ctx.SetUserValue("videoID", parts[2])
				authMiddleware.OptionalAuth(endpoints.Videos.GetVideo)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}
		case strings.HasPrefix(path, "/users/") && strings.HasSuffix(path, "/videos"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[2] != "" && method == fasthttp.MethodGet {
				ctx.SetUserValue("userID", parts[2])
				authMiddleware.OptionalAuth(endpoints.Videos.ListUserVideos)(ctx)
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/ws":
			endpoints.Socket.HandleFastHTTP(ctx)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}
