// Package dashboard exposes the daemon's state over HTTP: a read-only
// status API, an SSE change feed, and the flow action endpoints the CLI
// uses to drive the live state machine.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/arielsw/dayflow/internal/activity"
	"github.com/arielsw/dayflow/internal/alarm"
	"github.com/arielsw/dayflow/internal/flow"
	"github.com/arielsw/dayflow/internal/repo"
	"github.com/gin-gonic/gin"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Addr   string
	Owner  string
	Repo   *repo.Repository
	Acts   *activity.Coordinator
	Flows  *flow.Coordinator
	Alarms *alarm.Escalator
	Out    io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Repo == nil {
		return fmt.Errorf("dashboard: repo is required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:7420"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://%s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/api/status", handleStatus(opts))
	router.GET("/api/flows/today", handleFlowsToday(opts))
	router.GET("/api/activities/today", handleActivitiesToday(opts))
	router.GET("/api/events", handleSSE(opts))

	router.POST("/api/flow/acknowledge", handleFlowAcknowledge(opts))
	router.POST("/api/flow/complete", handleFlowComplete(opts))
	router.POST("/api/flow/skip", handleFlowSkip(opts))
}

func handleStatus(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := Status(opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func handleFlowsToday(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := todayFlowLogs(opts.Repo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, logs)
	}
}

func handleActivitiesToday(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		acts, err := todayActivities(opts.Repo, opts.Owner)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, acts)
	}
}

func handleFlowAcknowledge(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Flows == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "flow coordinator not running"})
			return
		}
		if err := opts.Flows.Acknowledge(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": string(opts.Flows.State())})
	}
}

func handleFlowComplete(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Flows == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "flow coordinator not running"})
			return
		}
		if err := opts.Flows.CompleteStep(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": string(opts.Flows.State())})
	}
}

// skipRequest is the body of POST /api/flow/skip.
type skipRequest struct {
	StillSkipping bool `json:"still_skipping"`
}

func handleFlowSkip(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Flows == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "flow coordinator not running"})
			return
		}
		var req skipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := opts.Flows.ResolveSkip(req.StillSkipping); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": string(opts.Flows.State())})
	}
}
