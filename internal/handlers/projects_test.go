package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectHandlerCreateAndGet(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.createUser(t, "acme@example.com")

	env.fake.Reset()
	id := env.createProject(t, owner)
	require.Equal(t, []string{"owner_kind", "create_repo", "add_collaborator"}, env.fake.Ops())

	rec, body := env.do(t, http.MethodGet, "/api/projects/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	project := decode[struct {
		Key     string `json:"key"`
		RepoURL string `json:"repo_url"`
		Owner   struct {
			Username string `json:"username"`
		} `json:"owner"`
	}](t, body.Data)
	require.Equal(t, "PAY", project.Key)
	require.NotEmpty(t, project.RepoURL)
	require.Equal(t, "acme", project.Owner.Username)

	rec, body = env.do(t, http.MethodGet, "/api/projects?q=pay", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, body.Meta.Total)

	rec, _ = env.do(t, http.MethodPost, "/api/projects", map[string]any{
		"name":     "Payments",
		"key":      "pay",
		"owner_id": owner,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestProjectHandlerMembers(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.createUser(t, "acme@example.com")
	dev := env.createUser(t, "ivan@example.com")
	id := env.createProject(t, owner)

	env.fake.Reset()
	rec, _ := env.do(t, http.MethodPost, "/api/projects/"+id+"/members", map[string]any{"user_id": dev})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	call, ok := env.fake.Last("add_collaborator")
	require.True(t, ok)
	require.Equal(t, "write", call.Body)

	rec, _ = env.do(t, http.MethodPatch, "/api/projects/"+id+"/members/"+dev, map[string]any{"role": "maintainer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	call, _ = env.fake.Last("add_collaborator")
	require.Equal(t, "admin", call.Body)

	rec, body := env.do(t, http.MethodGet, "/api/projects/"+id+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}](t, body.Data)
	require.NotEmpty(t, members)

	rec, _ = env.do(t, http.MethodPatch, "/api/projects/"+id+"/members/"+dev, map[string]any{"role": "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/projects/"+id+"/members/"+dev, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, env.fake.Count("remove_collaborator"))

	rec, body = env.do(t, http.MethodDelete, "/api/projects/"+id+"/members/"+dev, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "MEMBER_NOT_FOUND", body.Error.Code)
}

func TestProjectHandlerCommits(t *testing.T) {
	env := newHandlerEnv(t)
	owner := env.createUser(t, "acme@example.com")
	id := env.createProject(t, owner)

	rec, body := env.do(t, http.MethodGet, "/api/projects/"+id+"/commits?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	commits := decode[[]map[string]any](t, body.Data)
	require.Len(t, commits, 1)

	rec, _ = env.do(t, http.MethodGet, "/api/projects/unknown/commits", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
