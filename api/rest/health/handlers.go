package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	serviceName  = "docuchat"
	version      = "1.0.0"
	checkTimeout = 3 * time.Second
)

// returns the server health status, probing every check
func Handler(checks map[string]Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		defer cancel()

		resp := Response{
			Status:  StatusHealthy,
			Service: serviceName,
			Version: version,
			Checks:  make(map[string]string, len(checks)),
		}

		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = StatusDegraded
				resp.Checks[name] = err.Error()
				continue
			}

			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, resp)
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}

// lists the models a chat session or collection may select
func BackendsHandler(llms LLMCatalog, embedders EmbedderCatalog, vectorStore string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, BackendsResponse{
			LLMs:            llms.Available(),
			DefaultLLM:      llms.Default(),
			Embedders:       embedders.Models(),
			DefaultEmbedder: embedders.Default(),
			VectorStore:     vectorStore,
		})
	}
}
