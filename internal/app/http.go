package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/api/internal/access"
	"taskboard/api/internal/apperr"
	"taskboard/api/internal/identity"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const (
	ctxUser    = "taskboard.user"
	ctxGrant   = "taskboard.grant"
	ctxProject = "taskboard.project"
	ctxID      = "taskboard.resource_id"
)

type HTTPConfig struct {
	CORSOrigin    string
	SessionCookie string
	SessionTTL    time.Duration
	SecureCookie  bool
	DevLogin      bool
}

// HTTPServer exposes the service under /api/v1. Every resource route is
// composed as request log, user resolution, resource access check and
// finally the handler.
type HTTPServer struct {
	engine   *gin.Engine
	service  *Service
	resolver *identity.Resolver
	logger   *slog.Logger
	cfg      HTTPConfig
}

func NewHTTPServer(service *Service, resolver *identity.Resolver, logger *slog.Logger, cfg HTTPConfig) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "taskboard_session"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &HTTPServer{
		engine:   router,
		service:  service,
		resolver: resolver,
		logger:   logger.With("component", "http"),
		cfg:      cfg,
	}
	router.Use(s.requestLog())
	s.registerRoutes()
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) registerRoutes() {
	s.engine.GET("/api/health", s.handleHealth)
	s.engine.HEAD("/api/health", s.handleHealth)
	s.engine.GET("/api/ready", s.handleReady)

	v1 := s.engine.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/logout", s.handleLogout)
	authGroup.GET("/me", s.requireUser, s.handleMe)
	authGroup.POST("/token", s.requireUser, s.handleIssueToken)

	api := v1.Group("", s.requireUser)

	project := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindProject, "id", action) }
	board := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindBoard, "id", action) }
	stage := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindStage, "id", action) }
	task := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindTask, "id", action) }
	list := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindList, "id", action) }
	item := func(action access.Action) gin.HandlerFunc { return s.authorize(access.KindListItem, "id", action) }

	api.GET("/projects", s.handleListProjects)
	api.POST("/projects", s.handleCreateProject)
	api.GET("/projects/:id", project(access.ActionRead), s.handleGetProject)
	api.PUT("/projects/:id", project(access.ActionWrite), s.handleUpdateProject)
	api.DELETE("/projects/:id", project(access.ActionDelete), s.handleDeleteProject)
	api.GET("/projects/:id/members", project(access.ActionRead), s.handleListMembers)
	api.GET("/projects/:id/shares", project(access.ActionRead), s.handleListShares)
	api.POST("/projects/:id/shares", project(access.ActionShare), s.handleCreateShare)
	api.DELETE("/projects/:id/shares/:userId", project(access.ActionShare), s.handleDeleteShare)
	api.GET("/projects/:id/boards", project(access.ActionRead), s.handleListProjectBoards)
	api.POST("/projects/:id/boards", project(access.ActionWrite), s.handleCreateBoard)
	api.GET("/projects/:id/lists", project(access.ActionRead), s.handleListProjectLists)
	api.POST("/projects/:id/lists", project(access.ActionWrite), s.handleCreateList)
	api.POST("/projects/:id/template", project(access.ActionRead), s.handleCaptureProject)

	api.GET("/boards", s.handleListBoards)
	api.GET("/boards/:id", board(access.ActionRead), s.handleGetBoard)
	api.PUT("/boards/:id", board(access.ActionWrite), s.handleUpdateBoard)
	api.DELETE("/boards/:id", board(access.ActionDelete), s.handleDeleteBoard)
	api.GET("/boards/:id/stages", board(access.ActionRead), s.handleListStages)
	api.POST("/boards/:id/stages", board(access.ActionWrite), s.handleCreateStage)
	api.GET("/boards/:id/tasks", board(access.ActionRead), s.handleListTasks)
	api.POST("/boards/:id/tasks", board(access.ActionWrite), s.handleCreateTask)
	api.GET("/boards/:id/fields", board(access.ActionRead), s.handleListFields)
	api.POST("/boards/:id/fields", board(access.ActionWrite), s.handleCreateField)
	api.PUT("/boards/:id/fields/:fieldId", board(access.ActionWrite), s.handleUpdateField)
	api.DELETE("/boards/:id/fields/:fieldId", board(access.ActionWrite), s.handleDeleteField)
	api.POST("/boards/:id/template", board(access.ActionRead), s.handleCaptureBoard)

	api.PUT("/stages/:id", stage(access.ActionWrite), s.handleUpdateStage)
	api.DELETE("/stages/:id", stage(access.ActionWrite), s.handleDeleteStage)
	api.PUT("/stages/:id/reorder", stage(access.ActionWrite), s.handleReorderStage)

	api.GET("/tasks/:id", task(access.ActionRead), s.handleGetTask)
	api.PUT("/tasks/:id", task(access.ActionWrite), s.handleUpdateTask)
	api.DELETE("/tasks/:id", task(access.ActionWrite), s.handleDeleteTask)
	api.PUT("/tasks/:id/move", task(access.ActionWrite), s.handleMoveTask)

	api.GET("/lists", s.handleListLists)
	api.GET("/lists/:id", list(access.ActionRead), s.handleGetList)
	api.PUT("/lists/:id", list(access.ActionWrite), s.handleUpdateList)
	api.DELETE("/lists/:id", list(access.ActionDelete), s.handleDeleteList)
	api.GET("/lists/:id/items", list(access.ActionRead), s.handleListItems)
	api.POST("/lists/:id/items", list(access.ActionWrite), s.handleCreateItem)
	api.POST("/lists/:id/template", list(access.ActionRead), s.handleCaptureList)

	api.PUT("/items/:id", item(access.ActionWrite), s.handleUpdateItem)
	api.DELETE("/items/:id", item(access.ActionWrite), s.handleDeleteItem)
	api.POST("/items/:id/toggle", item(access.ActionWrite), s.handleToggleItem)
	api.PUT("/items/:id/reorder", item(access.ActionWrite), s.handleReorderItem)

	for _, kind := range []store.TemplateKind{store.TemplateBoard, store.TemplateList, store.TemplateProject} {
		g := api.Group("/" + string(kind) + "-templates")
		g.GET("", s.handleListTemplates(kind))
		g.POST("", s.handleCreateTemplate(kind))
		g.GET("/:id", s.handleGetTemplate(kind))
		g.PUT("/:id", s.handleUpdateTemplate(kind))
		g.DELETE("/:id", s.handleDeleteTemplate(kind))
		g.POST("/:id/apply", s.handleApplyTemplate(kind))
	}
	api.POST("/templates/seed", s.handleSeedTemplates)
}

// requestLog assigns a request id, sets CORS headers, answers preflight
// requests and logs one line per request.
func (s *HTTPServer) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("")
		}
		started := time.Now()

		h := c.Writer.Header()
		h.Set("X-Request-ID", requestID)
		h.Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		if s.cfg.CORSOrigin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Cache-Control", "no-store")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		} else {
			c.Next()
		}

		s.logger.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func (s *HTTPServer) credential(c *gin.Context) identity.Credential {
	cred := identity.Credential{BearerToken: identity.BearerFromHeader(c.GetHeader("Authorization"))}
	if cookie, err := c.Cookie(s.cfg.SessionCookie); err == nil {
		cred.SessionID = cookie
	}
	return cred
}

// requireUser rejects requests whose credential does not resolve.
func (s *HTTPServer) requireUser(c *gin.Context) {
	user, ok, err := s.resolver.Resolve(c.Request.Context(), s.credential(c))
	if err != nil {
		s.respondError(c, err)
		c.Abort()
		return
	}
	if !ok {
		s.respondError(c, apperr.Unauthenticated("authentication required"))
		c.Abort()
		return
	}
	c.Set(ctxUser, user)
	c.Next()
}

// authorize loads the resource named by param, evaluates the caller's grant
// on its project and stores both for the handler. A missing resource is
// 404, insufficient access is 403.
func (s *HTTPServer) authorize(kind access.Kind, param string, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, param)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}
		user := currentUser(c)
		grant, project, err := s.service.Access().Authorize(c.Request.Context(), access.Resource{Kind: kind, ID: id}, user.ID, action)
		if err != nil {
			s.respondError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxID, id)
		c.Set(ctxGrant, grant)
		c.Set(ctxProject, project)
		c.Next()
	}
}

func currentUser(c *gin.Context) store.User {
	v, _ := c.Get(ctxUser)
	user, _ := v.(store.User)
	return user
}

func currentGrant(c *gin.Context) access.Grant {
	v, _ := c.Get(ctxGrant)
	grant, ok := v.(access.Grant)
	if !ok {
		return access.NoGrant
	}
	return grant
}

func currentProject(c *gin.Context) store.Project {
	v, _ := c.Get(ctxProject)
	project, _ := v.(store.Project)
	return project
}

func resourceID(c *gin.Context) int64 {
	return c.GetInt64(ctxID)
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func (s *HTTPServer) bind(c *gin.Context, target any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(target); err != nil {
		if _, ok := apperr.As(err); ok {
			s.respondError(c, err)
			return false
		}
		s.respondError(c, apperr.Validation("invalid JSON body"))
		return false
	}
	return true
}

func respondData(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"data": payload})
}

func (s *HTTPServer) respondError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": body})
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *HTTPServer) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{"database": gin.H{"status": "ok"}}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		checks["database"] = gin.H{"status": "error", "error": err.Error()}
	}
	c.JSON(status, gin.H{"ok": status == http.StatusOK, "checks": checks})
}

func (s *HTTPServer) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.SessionCookie, value, maxAge, "/", "", s.cfg.SecureCookie, true)
}

func (s *HTTPServer) handleLogin(c *gin.Context) {
	if !s.cfg.DevLogin {
		s.respondError(c, apperr.NotFound("route"))
		return
	}
	var in SignInInput
	if !s.bind(c, &in) {
		return
	}
	result, err := s.service.SignIn(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.setSessionCookie(c, result.SessionID, int(s.cfg.SessionTTL.Seconds()))
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondData(c, status, gin.H{"user": result.User, "created": result.Created})
}

func (s *HTTPServer) handleLogout(c *gin.Context) {
	if cookie, err := c.Cookie(s.cfg.SessionCookie); err == nil {
		if err := s.service.SignOut(c.Request.Context(), cookie); err != nil && !errors.Is(err, context.Canceled) {
			s.respondError(c, err)
			return
		}
	}
	s.setSessionCookie(c, "", -1)
	respondData(c, http.StatusOK, gin.H{"ok": true})
}

func (s *HTTPServer) handleMe(c *gin.Context) {
	respondData(c, http.StatusOK, currentUser(c))
}

func (s *HTTPServer) handleIssueToken(c *gin.Context) {
	token, err := s.service.IssueToken(currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, token)
}
