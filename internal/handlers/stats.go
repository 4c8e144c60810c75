package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
)

// RecordCounter queries the archive; *store.PostgresStore implements it.
type RecordCounter interface {
	CountRecords(ctx context.Context, tenant, event string, from, to time.Time) (int64, error)
	CountByEvent(ctx context.Context, tenant string, from, to time.Time) (map[string]int64, error)
}

// RegisterStatsRoutes registers the archive query endpoint.
//
// GET /stats?from=...&to=...[&event=...]
// - Requires an API key; counts are scoped to the caller's tenant
// - With event: {"event","count"} for records archived in [from,to)
// - Without: {"counts": {event: count}}
func RegisterStatsRoutes(r gin.IRoutes, st RecordCounter) {
	r.GET("/stats", func(c *gin.Context) {
		tenant := auth.TenantID(c)
		if tenant == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		from, to, msg := parseWindow(c.Query("from"), c.Query("to"))
		if msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}

		event := c.Query("event")
		if event == "" {
			counts, err := st.CountByEvent(c.Request.Context(), tenant, from, to)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"counts": counts})
			return
		}

		count, err := st.CountRecords(c.Request.Context(), tenant, event, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"event": event,
			"count": count,
		})
	})
}

// parseWindow validates a half-open RFC3339 window; msg is non-empty on failure.
func parseWindow(fromStr, toStr string) (from, to time.Time, msg string) {
	if fromStr == "" || toStr == "" {
		return from, to, "from, to are required"
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return from, to, "from must be RFC3339"
	}
	to, err = time.Parse(time.RFC3339, toStr)
	if err != nil {
		return from, to, "to must be RFC3339"
	}

	from, to = from.UTC(), to.UTC()
	if !from.Before(to) {
		return from, to, "from must be < to"
	}
	return from, to, ""
}
