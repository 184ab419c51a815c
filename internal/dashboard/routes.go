package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundeepg98/colab-bridge/internal/store"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, st store.Store) {
	router.GET("/api/stats", handleStats(st))
	router.GET("/api/sessions", handleSessions(st))
	router.GET("/api/instances", handleInstances(st))
	router.GET("/api/commands", handleCommands(st))
	router.GET("/api/results", handleResults(st))

	// SSE feed of summary stats.
	router.GET("/api/events", handleSSE(st))
}

func handleStats(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := gatherStats(c.Request.Context(), st)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func handleSessions(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := listSessions(c.Request.Context(), st, time.Now())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

func handleInstances(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		instances, err := listInstances(c.Request.Context(), st, time.Now())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"instances": instances})
	}
}

func handleCommands(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		commands, err := listCommands(c.Request.Context(), st)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commands": commands})
	}
}

func handleResults(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := listOutcomes(c.Request.Context(), st)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
