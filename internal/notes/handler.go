package notes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/metrics"
)

// NewRouter builds the notes API on top of svc.
func NewRouter(svc *Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())
	RegisterRoutes(r, svc)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func RegisterRoutes(r *gin.Engine, svc *Service) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	r.GET("/notes", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/notes/:id", func(c *gin.Context) {
		n, err := svc.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	})

	r.POST("/notes", func(c *gin.Context) {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n, err := svc.Create(c.Request.Context(), req.Content)
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	})

	r.DELETE("/notes/:id", func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("id"))
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func internalError(c *gin.Context, err error) {
	log.WithError(err).WithField("path", c.Request.URL.Path).Error("notes request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.NotesRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
