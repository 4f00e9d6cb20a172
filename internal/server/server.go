package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/agenthands/lattice/internal/config"
	"github.com/agenthands/lattice/internal/engine"
	"github.com/agenthands/lattice/internal/model"
	"github.com/agenthands/lattice/internal/reqctx"
	"github.com/agenthands/lattice/internal/search"
	"github.com/agenthands/lattice/internal/store"
)

type Server struct {
	Engine *engine.Engine
}

func NewServer(cfg *config.Config) *Server {
	gs, err := store.NewNeo4jStore(cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password)
	if err != nil {
		log.Fatalf("Failed to connect to graph store: %v", err)
	}
	return &Server{Engine: engine.New(gs, cfg.Graph.GraphID)}
}

// RequestContext stamps a generated request id and the consumer/channel
// headers into the request's context before any handler runs.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := reqctx.WithRequestID(c.Request.Context(), uuid.New().String())
		if consumerID := c.GetHeader("X-Consumer-ID"); consumerID != "" {
			ctx = reqctx.WithConsumerID(ctx, consumerID)
		}
		if channelID := c.GetHeader("X-Channel-ID"); channelID != "" {
			ctx = reqctx.WithChannelID(ctx, channelID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	r.Use(RequestContext())

	v1 := r.Group("/v1/graph")
	v1.POST("/nodes", s.UpsertNode)
	v1.POST("/nodes/create", s.AddNode)
	v1.PATCH("/nodes/:id", s.UpdateNode)
	v1.GET("/nodes/:id", s.GetNode)
	v1.DELETE("/nodes/:id", s.DeleteNode)
	v1.POST("/nodes/import", s.ImportNodes)
	v1.PATCH("/nodes/:id/properties", s.UpdateProperties)
	v1.POST("/relations", s.CreateRelation)
	v1.DELETE("/relations", s.DeleteRelation)
	v1.POST("/root", s.UpsertRootNode)
	v1.POST("/search", s.Search)
	v1.POST("/count", s.Count)

	return r
}

// statusFor maps engine error kinds to HTTP statuses.
func statusFor(err error) int {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrTypeMismatch), errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	log.Printf("request %s failed: %v", reqctx.RequestID(c.Request.Context()), err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) UpsertNode(c *gin.Context) {
	var node model.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	result, err := s.Engine.UpsertNode(c.Request.Context(), &node)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": result})
}

func (s *Server) AddNode(c *gin.Context) {
	var node model.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	result, err := s.Engine.AddNode(c.Request.Context(), &node)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": result})
}

func (s *Server) UpdateNode(c *gin.Context) {
	var node model.Node
	if err := c.ShouldBindJSON(&node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	node.Identifier = c.Param("id")
	result, err := s.Engine.UpdateNode(c.Request.Context(), &node)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": result})
}

func (s *Server) GetNode(c *gin.Context) {
	node, err := s.Engine.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": node})
}

func (s *Server) DeleteNode(c *gin.Context) {
	if err := s.Engine.DeleteNode(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type importRequest struct {
	Nodes []*model.Node `json:"nodes"`
}

func (s *Server) ImportNodes(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	outcome, err := s.Engine.ImportNodes(c.Request.Context(), req.Nodes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": outcome.Imported, "failed": outcome.Failed})
}

func (s *Server) UpdateProperties(c *gin.Context) {
	var metadata map[string]any
	if err := c.ShouldBindJSON(&metadata); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	versionKey, err := s.Engine.UpdateProperties(c.Request.Context(), c.Param("id"), metadata)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versionKey": versionKey})
}

func (s *Server) CreateRelation(c *gin.Context) {
	var rel model.Relation
	if err := c.ShouldBindJSON(&rel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Engine.CreateRelation(c.Request.Context(), rel); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "relation validation failed", "messages": verr.Messages})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) DeleteRelation(c *gin.Context) {
	var rel model.Relation
	if err := c.ShouldBindJSON(&rel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := s.Engine.DeleteRelation(c.Request.Context(), rel); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) UpsertRootNode(c *gin.Context) {
	node, err := s.Engine.UpsertRootNode(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": node})
}

func (s *Server) Search(c *gin.Context) {
	var criteria search.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	nodes, err := s.Engine.SearchNodes(c.Request.Context(), &criteria)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (s *Server) Count(c *gin.Context) {
	var criteria search.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	count, err := s.Engine.CountNodes(c.Request.Context(), &criteria)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
