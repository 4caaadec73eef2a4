package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicMiddleware returns a gin middleware for New Relic tracing
func NewRelicMiddleware(app *newrelic.Application) gin.HandlerFunc {
	return nrgin.Middleware(app)
}

// RequestTransaction copies the gin transaction onto the request context so
// services and outbound HTTP calls join it. Register after NewRelicMiddleware.
func RequestTransaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			c.Request = c.Request.WithContext(newrelic.NewContext(c.Request.Context(), txn))
		}
		c.Next()
	}
}
