package middleware

import (
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
)

const (
	allowedMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders  = "Authorization, Content-Type, Content-Length"
	preflightMaxAge = "86400"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost:\d+$`)

type CORSMiddleware struct {
	allowedOrigins []string
	wildcard       bool
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	cleaned := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	wildcard := len(cleaned) == 0 || (len(cleaned) == 1 && cleaned[0] == "*")
	return &CORSMiddleware{
		allowedOrigins: cleaned,
		wildcard:       wildcard,
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		switch {
		case origin != "" && cm.isOriginAllowed(origin):
			// credentialed requests need the concrete origin echoed back
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
			ctx.Response.Header.Add("Vary", "Origin")
		case cm.wildcard:
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", allowedMethods)
		ctx.Response.Header.Set("Access-Control-Allow-Headers", allowedHeaders)
		ctx.Response.Header.Set("Access-Control-Max-Age", preflightMaxAge)

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	if cm.wildcard {
		// dev mode: any localhost port may send credentials
		return localhostOrigin.MatchString(origin)
	}
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if (allowed == "http://localhost:*" || allowed == "https://localhost:*") && localhostOrigin.MatchString(origin) {
			return true
		}
	}
	return false
}
