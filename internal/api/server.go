package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"weather-dashboard/internal/dashboard"
	"weather-dashboard/internal/tablestore"

	"github.com/gin-gonic/gin"
)

// Server exposes the latest collected weather over a small JSON API
// when running in serve mode.
type Server struct {
	router    *gin.Engine
	server    *http.Server
	dashboard *dashboard.Dashboard
	tables    tablestore.Store
	port      int
}

type ServerConfig struct {
	Port      int
	Dashboard *dashboard.Dashboard
	Tables    tablestore.Store
}

func NewServer(cfg ServerConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		dashboard: cfg.Dashboard,
		tables:    cfg.Tables,
		port:      cfg.Port,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/cities", s.citiesHandler)
		api.GET("/weather/latest", s.latestHandler)
		api.GET("/forecast/daily", s.dailyForecastHandler)
		api.GET("/forecast/record", s.recordHandler)
	}
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"collecting": s.dashboard.IsCollecting(),
		"timestamp":  time.Now(),
	})
}

func (s *Server) citiesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cities": s.dashboard.Cities()})
}

func (s *Server) latestHandler(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city parameter is required"})
		return
	}

	obs := s.dashboard.Latest(city)
	if obs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data for city yet"})
		return
	}
	c.JSON(http.StatusOK, obs)
}

func (s *Server) dailyForecastHandler(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city parameter is required"})
		return
	}

	daily := s.dashboard.Daily(city)
	if daily == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast for city yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": city, "daily": daily})
}

func (s *Server) recordHandler(c *gin.Context) {
	city := c.Query("city")
	tsStr := c.Query("ts")
	if city == "" || tsStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city and ts parameters are required"})
		return
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ts must be epoch seconds"})
		return
	}

	record, err := s.tables.GetRecord(c.Request.Context(), tablestore.Key(city, ts))
	if errors.Is(err, tablestore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}
