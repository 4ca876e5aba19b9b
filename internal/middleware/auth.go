package middleware

import (
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/vidshare/vidshare_server/internal/user"
)

const userValueKey = "user"

type AuthMiddleware struct {
	userService *user.UserService
}

func NewAuthMiddleware(userService *user.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
	}
}

func (am *AuthMiddleware) RequireAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, err := am.userService.GetSession(&ctx.Request.Header)
		if err != nil {
			log.Debug().Err(err).Str("path", string(ctx.Path())).Msg("Authentication failed")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		ctx.SetUserValue(userValueKey, authenticatedUser)

		handler(ctx)
	}
}

// OptionalAuth attaches the session user when one is present and never rejects.
func (am *AuthMiddleware) OptionalAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if authenticatedUser, err := am.userService.GetSession(&ctx.Request.Header); err == nil {
			ctx.SetUserValue(userValueKey, authenticatedUser)
		}
		handler(ctx)
	}
}

// CurrentUser returns the user attached by RequireAuth or OptionalAuth.
func CurrentUser(ctx *fasthttp.RequestCtx) (*user.User, bool) {
	authenticatedUser, ok := ctx.UserValue(userValueKey).(*user.User)
	return authenticatedUser, ok && authenticatedUser != nil
}
