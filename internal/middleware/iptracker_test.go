package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-sentinela/internal/logging"
	"github.com/prefeitura-rio/app-sentinela/internal/models"
	"github.com/prefeitura-rio/app-sentinela/internal/redisclient"
	"github.com/prefeitura-rio/app-sentinela/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserIPStore struct {
	blocked map[string][]string
}

func (s *stubUserIPStore) BulkUpsert(context.Context, []models.UserIPPair, time.Time) error {
	return nil
}

func (s *stubUserIPStore) LatestForUser(context.Context, string) (*models.UserIP, error) {
	return nil, nil
}

func (s *stubUserIPStore) BlockedIPs(_ context.Context, userID string) ([]string, error) {
	return s.blocked[userID], nil
}

func (s *stubUserIPStore) SetBlocked(context.Context, string, string, bool) error {
	return nil
}

type stubBlockedIPStore struct {
	ips []string
}

func (s *stubBlockedIPStore) All(context.Context) ([]string, error) {
	return s.ips, nil
}

func (s *stubBlockedIPStore) List(context.Context) ([]models.BlockedIP, error) {
	return nil, nil
}

func (s *stubBlockedIPStore) Block(context.Context, string, string, string) (*models.BlockedIP, error) {
	return nil, nil
}

func (s *stubBlockedIPStore) Unblock(context.Context, string) error {
	return nil
}

func newTestRouter(t *testing.T, userBlocked map[string][]string, globalBlocked []string) (*gin.Engine, *services.RedisIngestBuffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	buffer := services.NewRedisIngestBuffer(client, time.Hour)
	cache := services.NewBlockedIPCache(client,
		&stubUserIPStore{blocked: userBlocked},
		&stubBlockedIPStore{ips: globalBlocked},
		30*time.Minute, logging.Logger)

	router := gin.New()
	router.Use(IPTracker(buffer, cache))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey)})
	})
	return router, buffer
}

func doRequest(router *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIPTracker_RecordsSighting(t *testing.T) {
	router, buffer := newTestRouter(t, nil, nil)

	w := doRequest(router, "user-1")
	assert.Equal(t, http.StatusOK, w.Code)

	ips, err := buffer.Sightings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, ips)
}

func TestIPTracker_DeniesBlockedIP(t *testing.T) {
	router, buffer := newTestRouter(t, map[string][]string{"user-1": {"10.0.0.1"}}, nil)

	w := doRequest(router, "user-1")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A denied request leaves no sighting behind
	ips, err := buffer.Sightings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, ips)
}

func TestIPTracker_DeniesGloballyBlockedIP(t *testing.T) {
	router, _ := newTestRouter(t, nil, []string{"10.0.0.1"})

	w := doRequest(router, "user-2")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIPTracker_SkipsAnonymousRequests(t *testing.T) {
	router, buffer := newTestRouter(t, nil, []string{"10.0.0.1"})

	// No identity header: nothing to track, nothing to deny against
	w := doRequest(router, "")
	assert.Equal(t, http.StatusOK, w.Code)

	userIDs, err := buffer.UserIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, userIDs)
}
