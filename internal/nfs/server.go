package nfs

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/logging"
	"github.com/anon-safe/safe-launcher/internal/infrastructure/tracing"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

// MaxFileSize bounds uploaded file content
const MaxFileSize = 16 << 20

// Server exposes a Store over REST so peer agents can share it through
// a RemoteStore.
type Server struct {
	store Store
	log   *logging.Logger
}

// NewServer wraps a store
func NewServer(store Store, log *logging.Logger) *Server {
	return &Server{store: store, log: log.Component("nfs.server")}
}

// Register mounts the store routes on r
func (s *Server) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	{
		v1.GET("/root", s.root)
		v1.GET("/config-dirs/:name", s.configDirectory)
		v1.POST("/config-dirs", s.createConfigDirectory)
		v1.GET("/dirs/:key", s.directory)
		v1.POST("/dirs/:key/children", s.createDirectory)
		v1.DELETE("/dirs/:key/children/:name", s.deleteDirectory)
		v1.POST("/dirs/:key/files", s.createFile)
		v1.GET("/dirs/:key/files/:name", s.readFile)
		v1.PUT("/dirs/:key/files/:name", s.overwriteFile)
	}
}

// Handler returns a standalone engine serving the store behind the given
// middleware
func (s *Server) Handler(middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	s.Register(router)
	return router
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrExists):
		status = http.StatusConflict
	default:
		s.log.Error("store request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			tracing.Field(c.Request.Context()),
			zap.Error(err))
	}
	c.JSON(status, errorBody{Error: err.Error()})
}

func (s *Server) root(c *gin.Context) {
	dir, err := s.store.RootDirectory(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dir)
}

func (s *Server) configDirectory(c *gin.Context) {
	dir, err := s.store.ConfigDirectory(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dir)
}

func (s *Server) createConfigDirectory(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request: " + err.Error()})
		return
	}
	dir, err := s.store.CreateConfigDirectory(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dir)
}

func (s *Server) directory(c *gin.Context) {
	dir, err := s.store.GetDirectory(c.Request.Context(), c.Param("key"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dir)
}

func (s *Server) createDirectory(c *gin.Context) {
	var req createDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request: " + err.Error()})
		return
	}
	opts := DirectoryOptions{Versioned: req.Versioned, Access: req.Access}
	dir, err := s.store.CreateDirectory(c.Request.Context(), c.Param("key"), req.Name, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dir)
}

func (s *Server) deleteDirectory(c *gin.Context) {
	if err := s.store.DeleteDirectory(c.Request.Context(), c.Param("key"), c.Param("name")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createFile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request: " + err.Error()})
		return
	}
	info, err := s.store.CreateFile(c.Request.Context(), c.Param("key"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) readFile(c *gin.Context) {
	data, info, err := s.store.ReadFile(c.Request.Context(), c.Param("key"), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header(HeaderFileVersion, strconv.FormatUint(info.Version, 10))
	c.Header(HeaderFileSize, strconv.FormatInt(info.Size, 10))
	c.Header(HeaderFileModified, info.ModifiedAt.UTC().Format(time.RFC3339Nano))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) overwriteFile(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "read body: " + err.Error()})
		return
	}
	if len(data) > MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, errorBody{Error: "file too large"})
		return
	}
	info, err := s.store.OverwriteFile(c.Request.Context(), c.Param("key"), c.Param("name"), data)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
