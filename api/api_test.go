package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsv/votify/api"
	"github.com/mkarlsv/votify/cache"
	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router http.Handler
	store  *store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Redis:     &config.RedisConfig{},
		Session:   &config.SessionConfig{CookieName: "sessionId", MaxAge: 3600},
		RateLimit: &config.RateLimitConfig{Enabled: true, MaxAttempts: 5, WindowMinutes: 15},
		Cache:     &config.CacheConfig{TTLSeconds: 30},
		DefaultGroup: &config.DefaultGroupConfig{
			ID:          "default",
			Name:        "General",
			Description: "Default group for all registered users",
		},
	}

	st, err := store.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	srv, err := api.New(cfg, st, cache.NewSessions(cfg.Cache))
	require.NoError(t, err)

	return &testServer{router: srv.Router(), store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "sessionId" {
			return c
		}
	}
	t.Fatal("no sessionId cookie in response")
	return nil
}

func (ts *testServer) register(t *testing.T, username string) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"firstName": "Alice",
		"lastName":  "Smith",
		"username":  username,
		"email":     username + "@example.com",
		"password":  "secret1",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func (ts *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/login", gin.H{
		"username": username,
		"password": "secret1",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func (ts *testServer) loginAdmin(t *testing.T) *http.Cookie {
	t.Helper()
	ts.register(t, "admin")
	user, err := ts.store.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	require.NoError(t, ts.store.SetAdmin(context.Background(), user.ID, true))
	return ts.login(t, "admin")
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	t.Run("success", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/register", gin.H{
			"firstName": "Alice",
			"lastName":  "Smith",
			"username":  "alice",
			"email":     "alice@example.com",
			"password":  "secret1",
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Success bool   `json:"success"`
			UserID  string `json:"userId"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.UserID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/register", gin.H{
			"firstName": "Alan",
			"lastName":  "Jones",
			"username":  "alice",
			"email":     "alan@example.com",
			"password":  "other123",
		}, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("field validation", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/register", gin.H{
			"firstName": "A",
			"lastName":  "Smith",
			"username":  "ab",
			"email":     "not-an-email",
			"password":  "short",
		}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Errors []struct {
				Field   string `json:"field"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		fields := make([]string, 0, len(resp.Errors))
		for _, fe := range resp.Errors {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"firstName", "email", "password"}, fields)
	})
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	t.Run("success sets cookie", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/login", gin.H{
			"username": "alice",
			"password": "secret1",
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		c := sessionCookie(t, w)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("wrong password and unknown user are identical", func(t *testing.T) {
		wrong := ts.do(t, http.MethodPost, "/api/login", gin.H{
			"username": "alice", "password": "wrongpass",
		}, nil)
		unknown := ts.do(t, http.MethodPost, "/api/login", gin.H{
			"username": "nobody", "password": "secret1",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	})
}

func TestLogin_RateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	body := gin.H{"username": "alice", "password": "wrongpass"}
	for i := 0; i < 5; i++ {
		w := ts.do(t, http.MethodPost, "/api/login", body, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := ts.do(t, http.MethodPost, "/api/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAuthScenario(t *testing.T) {
	ts := newTestServer(t)

	// register -> login -> me -> logout -> me(null)
	ts.register(t, "alice")
	cookie := ts.login(t, "alice")

	w := ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		User *struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.NotNil(t, me.User)
	assert.Equal(t, "alice", me.User.Username)

	w = ts.do(t, http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	me.User = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Nil(t, me.User)
}

func TestMe_NoCookie(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/me", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestLogout_NoCookie(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func sessionBody(start, end time.Time) gin.H {
	return gin.H{
		"title":       "Quarterly planning vote",
		"description": "Pick the slide we present first.",
		"startTime":   start.Format(time.RFC3339),
		"endTime":     end.Format(time.RFC3339),
		"slideIds":    []string{"slide-1", "slide-2"},
	}
}

func createSession(t *testing.T, ts *testServer, admin *http.Cookie, start, end time.Time) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/createSession", sessionBody(start, end), admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestCreateSession(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	t.Run("requires admin", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/createSession", sessionBody(start, end), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		ts.register(t, "bob")
		user := ts.login(t, "bob")
		w = ts.do(t, http.MethodPost, "/api/createSession", sessionBody(start, end), user)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("success with derived status", func(t *testing.T) {
		id := createSession(t, ts, admin, start, end)

		w := ts.do(t, http.MethodGet, "/api/getSession/"+id, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Session struct {
				Title            string   `json:"title"`
				Status           string   `json:"status"`
				AssignedGroupIDs []string `json:"assignedGroupIds"`
			} `json:"session"`
			Slides []string `json:"slides"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Quarterly planning vote", resp.Session.Title)
		assert.Equal(t, "ongoing", resp.Session.Status)
		assert.Equal(t, []string{"default"}, resp.Session.AssignedGroupIDs, "defaults to the default group")
		assert.Equal(t, []string{"slide-1", "slide-2"}, resp.Slides)
	})

	t.Run("field validation", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/createSession", gin.H{
			"title":       "shrt",
			"description": "too short",
			"startTime":   "garbage",
			"endTime":     end.Format(time.RFC3339),
			"slideIds":    []string{},
		}, admin)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetSession_NotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/getSession/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateSession(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	id := createSession(t, ts, admin, start, end)

	body := sessionBody(start, end)
	body["title"] = "Updated title here"
	body["slideIds"] = []string{"slide-9"}

	w := ts.do(t, http.MethodPut, "/api/updateSession/"+id, body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/getSession/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Session struct {
			Title string `json:"title"`
		} `json:"session"`
		Slides []string `json:"slides"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Updated title here", resp.Session.Title)
	assert.Equal(t, []string{"slide-9"}, resp.Slides)

	w = ts.do(t, http.MethodPut, "/api/updateSession/missing", body, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAllSessions(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	createSession(t, ts, admin, start, end)
	createSession(t, ts, admin, start, end)

	w := ts.do(t, http.MethodGet, "/api/getAllSessions", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 2)
	for _, sess := range resp.Sessions {
		assert.Equal(t, "ongoing", sess.Status)
	}
}

func TestCastVote(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	id := createSession(t, ts, admin, start, end)

	ts.register(t, "voter")
	voter := ts.login(t, "voter")

	t.Run("requires authentication", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{"selectedOption": "slide-1"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("success returns tally", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{"selectedOption": "slide-1"}, voter)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Tally struct {
				Counts map[string]int `json:"counts"`
				Total  int            `json:"totalVotes"`
			} `json:"tally"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Tally.Total)
		assert.Equal(t, 1, resp.Tally.Counts["slide-1"])
		assert.Equal(t, 0, resp.Tally.Counts["slide-2"])
	})

	t.Run("second vote conflicts", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{"selectedOption": "slide-2"}, voter)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown option", func(t *testing.T) {
		ts.register(t, "voter2")
		voter2 := ts.login(t, "voter2")
		w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{"selectedOption": "slide-99"}, voter2)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("closed session", func(t *testing.T) {
		closed := createSession(t, ts, admin,
			time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))
		w := ts.do(t, http.MethodPost, "/api/castVote/"+closed, gin.H{"selectedOption": "slide-1"}, voter)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing option", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{}, voter)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetResults(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	id := createSession(t, ts, admin,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	ts.register(t, "voter")
	voter := ts.login(t, "voter")
	w := ts.do(t, http.MethodPost, "/api/castVote/"+id, gin.H{"selectedOption": "slide-2"}, voter)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/getResults/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results    map[string]int `json:"results"`
		TotalVotes int            `json:"totalVotes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalVotes)
	assert.Equal(t, map[string]int{"slide-1": 0, "slide-2": 1}, resp.Results)

	w = ts.do(t, http.MethodGet, "/api/getResults/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminStats(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	w := ts.do(t, http.MethodGet, "/api/admin/stats", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Stats   struct {
			Users    int `json:"users"`
			Sessions int `json:"sessions"`
			Groups   int `json:"groups"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Stats.Users)
	assert.Equal(t, 1, resp.Stats.Groups)
}

func TestPages(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/login", "/register"} {
		w := ts.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
	}
}

func TestSessionManagementPages(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)

	id := createSession(t, ts, admin,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	t.Run("admin sees the forms", func(t *testing.T) {
		for _, path := range []string{"/vote/new", "/vote/" + id + "/settings"} {
			w := ts.do(t, http.MethodGet, path, nil, admin)
			require.Equal(t, http.StatusOK, w.Code, path)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
		}
	})

	t.Run("edit form is prefilled", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/vote/"+id+"/settings", nil, admin)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Quarterly planning vote")
		assert.Contains(t, w.Body.String(), "slide-1")
	})

	t.Run("anonymous is sent to login", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/vote/new", nil, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("non-admin is sent away", func(t *testing.T) {
		ts.register(t, "carol")
		carol := ts.login(t, "carol")

		w := ts.do(t, http.MethodGet, "/vote/new", nil, carol)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		w = ts.do(t, http.MethodGet, "/vote/"+id+"/settings", nil, carol)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/vote/"+id, w.Header().Get("Location"))
	})

	t.Run("settings for a missing session", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/vote/missing/settings", nil, admin)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
