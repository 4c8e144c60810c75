package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/pixel"
)

// maxEnvelopeBytes bounds one request body; large checkouts stay well below it.
const maxEnvelopeBytes = 1 << 20

// Dispatcher runs one envelope through the pixel bus.
type Dispatcher interface {
	Dispatch(ctx context.Context, env models.Envelope) pixel.Outcome
}

// RegisterEventRoutes registers the ingestion-path endpoint.
//
// POST /events
// - Requires an API key (tenant context)
// - Body is one pixel envelope; the content type is not checked so sendBeacon's text/plain works
// - Always 202 once the envelope parses: mapping failures are dropped, not reported to the browser
func RegisterEventRoutes(r gin.IRoutes, bus Dispatcher) {
	r.POST("/events", func(c *gin.Context) {
		if auth.TenantID(c) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEnvelopeBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		env, err := models.ParseEnvelope(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event envelope"})
			return
		}

		// Idempotency precedence:
		// 1) Idempotency-Key header
		// 2) id in the envelope
		// 3) generated UUID
		env = models.WithID(env, c.GetHeader("Idempotency-Key"))

		// Beacons are sent on page unload and the browser rarely waits for the reply.
		// The sink write must not inherit that cancellation; the tenant value is kept.
		outcome := bus.Dispatch(context.WithoutCancel(c.Request.Context()), env)

		c.JSON(http.StatusAccepted, models.EventIngestResponse{
			EventID: env.ID,
			Event:   env.Name,
			Status:  string(outcome),
		})
	})
}
