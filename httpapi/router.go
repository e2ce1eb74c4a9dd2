// Package httpapi exposes the sensor's admin commands over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/trbjo/goscreen/logger"
	"github.com/trbjo/goscreen/screen"
)

var lg = logger.For("httpapi")

// Sensor is the part of screen.Sensor the API drives.
type Sensor interface {
	Handle(ctx context.Context, cmd screen.Command) error
	Status() screen.Snapshot
}

type Router struct {
	engine *gin.Engine
	sensor Sensor
}

func NewRouter(sensor Sensor) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r := &Router{engine: engine, sensor: sensor}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.health)

	v1 := r.engine.Group("/api/v1")
	{
		sensor := v1.Group("/sensor")
		{
			sensor.GET("", r.status)
			sensor.POST("/start", r.command(screen.ActionStart))
			sensor.POST("/stop", r.command(screen.ActionStop))
			sensor.POST("/sync", r.command(screen.ActionSync))
			sensor.PUT("/label", r.setLabel)
		}
	}
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

// RequestLogger logs every request at debug level.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		lg.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (r *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

func (r *Router) status(c *gin.Context) {
	c.JSON(http.StatusOK, SensorResponse{
		Snapshot:  r.sensor.Status(),
		Timestamp: time.Now(),
	})
}

func (r *Router) command(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r.dispatch(c, screen.NewCommand(action))
	}
}

func (r *Router) setLabel(c *gin.Context) {
	var req LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}
	r.dispatch(c, screen.SetLabelCommand(*req.Label))
}

func (r *Router) dispatch(c *gin.Context, cmd screen.Command) {
	if err := r.sensor.Handle(c.Request.Context(), cmd); err != nil {
		lg.Error("command failed", "action", cmd.Action, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "sensor_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SensorResponse{
		Snapshot:  r.sensor.Status(),
		Timestamp: time.Now(),
	})
}
