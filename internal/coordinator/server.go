// Package coordinator is the HTTP adapter over internal/registry,
// grounded on the gin.Engine + handler-struct shape used throughout
// mantonx/viewra's api packages (Handler struct wrapping a service,
// one method per route, c.JSON/c.File for responses).
package coordinator

import (
	"net"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/grav1go/internal/logging"
	"github.com/five82/grav1go/internal/registry"
)

// Server wires the registry into gin routes.
type Server struct {
	reg      *registry.Registry
	password string
	logger   *logging.Logger
	engine   *gin.Engine
}

// New builds a Server. An empty password disables the password gate
// on the mutating /api endpoints.
func New(reg *registry.Registry, password string, logger *logging.Logger) *Server {
	s := &Server{reg: reg, password: password, logger: logger}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.logRequests)
	s.routes()
	return s
}

// logRequests is a minimal request logger replacing gin's default
// text logger with the category-tagged file logger used everywhere
// else in the coordinator.
func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	if s.logger == nil {
		return
	}
	s.logger.Info(logging.CategoryHTTP, "%s %s -> %d (%s)",
		c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

// Engine returns the underlying gin engine (for http.ListenAndServe
// or net/http/httptest).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/get_job/:held", s.handleGetJob)
	api.GET("/get_grain/:pid/:scene", s.handleGetGrain)
	api.GET("/get_projects", s.handleGetProjects)
	api.GET("/get_project/:pid", s.handleGetProject)
	api.GET("/get_home", s.handleGetHome)
	api.GET("/get_info", s.handleGetInfo)
	api.GET("/list_directory", s.handleListDirectory)
	api.POST("/add_project", s.handleAddProject)
	api.POST("/modify/:pid", s.handleModifyProject)
	api.POST("/delete_project/:pid", s.handleDeleteProject)

	s.engine.POST("/cancel_job", s.handleCancelJob)
	s.engine.POST("/finish_job", s.handleFinishJob)
	s.engine.GET("/scene/:pid/:scene", s.handleGetScene)
	s.engine.GET("/completed/:pid", s.handleGetCompleted)
}

// workerID synthesizes a dispatch-time worker identity from the
// connecting address and a client-declared port (spec data model
// note: never authenticated, a convenience key for the workers set).
func workerID(c *gin.Context) string {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	port := c.Query("port")
	if port == "" {
		port = "0"
	}
	return host + ":" + port
}
