package api

import (
	"log/slog"
	"strings"

	"github.com/BTreeMap/FarmGenius/internal/app"
	"github.com/gin-gonic/gin"
)

const (
	clientKey = "farmgenius.client"
	pageKey   = "farmgenius.page"
)

// maxClientIDLen bounds ids taken from the request; longer ones are replaced.
const maxClientIDLen = 128

// clientMiddleware resolves the caller's page, creating it on first use, and
// echoes the client id so a new browser can keep it.
func (s *Server) clientMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(ClientIDHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query(clientIDQuery))
		}
		if len(id) > maxClientIDLen {
			slog.Warn("Server.clientMiddleware: client id too long, allocating a new one", "len", len(id))
			id = ""
		}
		page, created, err := s.pages.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if created {
			slog.Debug("Server.clientMiddleware: new client", "client", page.ID())
		}
		c.Header(ClientIDHeader, page.ID())
		c.Set(clientKey, page.ID())
		c.Set(pageKey, page)
		c.Next()
	}
}

func pageFrom(c *gin.Context) *app.Page {
	return c.MustGet(pageKey).(*app.Page)
}
