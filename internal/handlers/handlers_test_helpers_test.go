package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/database/testutil"
	"github.com/FernandoVinha/TheManager/internal/mergeflow"
	"github.com/FernandoVinha/TheManager/internal/middleware"
	"github.com/FernandoVinha/TheManager/internal/monitoring"
	"github.com/FernandoVinha/TheManager/internal/monitoring/checks"
	"github.com/FernandoVinha/TheManager/internal/reconcile"
	"github.com/FernandoVinha/TheManager/internal/remote/remotetest"
	"github.com/FernandoVinha/TheManager/internal/services"
)

type handlerEnv struct {
	db     *gorm.DB
	fake   *remotetest.Fake
	router *gin.Engine
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page       int `json:"page"`
		PerPage    int `json:"per_page"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fake := remotetest.New()

	auditSvc, err := audit.NewService(db)
	require.NoError(t, err)
	reconciler, err := reconcile.New(db, fake, auditSvc, reconcile.Config{})
	require.NoError(t, err)
	workflow, err := mergeflow.New(db, fake, mergeflow.Config{})
	require.NoError(t, err)

	invites, err := services.NewInviteService(db, nil, reconciler)
	require.NoError(t, err)
	users, err := services.NewUserService(db, auditSvc, invites, reconciler)
	require.NoError(t, err)
	projects, err := services.NewProjectService(db, auditSvc, reconciler, fake)
	require.NoError(t, err)
	tasks, err := services.NewTaskService(db, auditSvc, workflow, fake)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Actor())

	userHandler := NewUserHandler(users, invites)
	r.GET("/api/users", userHandler.List)
	r.POST("/api/users", userHandler.Create)
	r.GET("/api/users/:id", userHandler.Get)
	r.PATCH("/api/users/:id", userHandler.Update)
	r.DELETE("/api/users/:id", userHandler.Delete)
	r.POST("/api/users/:id/password", userHandler.SetPassword)
	r.POST("/api/users/:id/invite", userHandler.ResendInvite)
	r.POST("/api/users/:id/resync", userHandler.Resync)

	inviteHandler := NewInviteHandler(invites)
	r.POST("/api/invites/accept", inviteHandler.Accept)
	r.POST("/api/invites/forgot", inviteHandler.Forgot)

	projectHandler := NewProjectHandler(projects)
	taskHandler := NewTaskHandler(tasks)
	r.GET("/api/projects", projectHandler.List)
	r.POST("/api/projects", projectHandler.Create)
	r.GET("/api/projects/:id", projectHandler.Get)
	r.POST("/api/projects/:id/resync", projectHandler.Resync)
	r.GET("/api/projects/:id/commits", projectHandler.Commits)
	r.GET("/api/projects/:id/members", projectHandler.Members)
	r.POST("/api/projects/:id/members", projectHandler.AddMember)
	r.PATCH("/api/projects/:id/members/:userID", projectHandler.UpdateMember)
	r.DELETE("/api/projects/:id/members/:userID", projectHandler.RemoveMember)
	r.GET("/api/projects/:id/tasks", taskHandler.List)
	r.POST("/api/projects/:id/tasks", taskHandler.Create)

	r.GET("/api/tasks/:id", taskHandler.Get)
	r.PATCH("/api/tasks/:id", taskHandler.Update)
	r.POST("/api/tasks/:id/fork", taskHandler.Fork)
	r.GET("/api/tasks/:id/messages", taskHandler.Messages)
	r.POST("/api/tasks/:id/messages", taskHandler.AddMessage)

	r.GET("/api/audit", NewAuditHandler(auditSvc).List)
	health := monitoring.NewHealthManager()
	health.RegisterLiveness(checks.Database(db, 0))
	health.RegisterReadiness(checks.Remote(fake, 0))
	healthHandler := NewHealthHandler(health)
	r.GET("/health", healthHandler.Live)
	r.GET("/health/ready", healthHandler.Ready)

	return &handlerEnv{db: db, fake: fake, router: r}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type idPayload struct {
	ID string `json:"id"`
}

func (e *handlerEnv) createUser(t *testing.T, email string) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/users", map[string]any{"email": email})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		User idPayload `json:"user"`
	}](t, env.Data)
	return created.User.ID
}

func (e *handlerEnv) createProject(t *testing.T, ownerID string) string {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name":      "Payments",
		"key":       "pay",
		"owner_id":  ownerID,
		"repo_name": "payments",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[idPayload](t, env.Data).ID
}
