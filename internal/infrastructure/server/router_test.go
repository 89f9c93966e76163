package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/imageproc"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/server"
)

type healthResponse struct {
	Status     string `json:"status"`
	Transforms *struct {
		Slots    int `json:"slots"`
		InFlight int `json:"in_flight"`
		Waiting  int `json:"waiting"`
	} `json:"transforms"`
}

func getHealth(t *testing.T, engine *gin.Engine) healthResponse {
	t.Helper()
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRouter_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("reports ok without a gate", func(t *testing.T) {
		router := server.NewRouter(server.RouterConfig{Logger: zap.NewNop()})

		resp := getHealth(t, router.Engine())

		assert.Equal(t, "ok", resp.Status)
		assert.Nil(t, resp.Transforms)
	})

	t.Run("reports transform occupancy", func(t *testing.T) {
		gate := imageproc.NewGate(1)
		router := server.NewRouter(server.RouterConfig{Logger: zap.NewNop(), Gate: gate})

		release := make(chan struct{})
		started := make(chan struct{})
		go func() {
			_ = gate.Do(context.Background(), func() error {
				close(started)
				<-release
				return nil
			})
		}()
		<-started
		go func() { _ = gate.Do(context.Background(), func() error { return nil }) }()
		require.Eventually(t, func() bool { return gate.Waiting() == 1 }, time.Second, 5*time.Millisecond)

		resp := getHealth(t, router.Engine())
		close(release)

		require.NotNil(t, resp.Transforms)
		assert.Equal(t, 1, resp.Transforms.Slots)
		assert.Equal(t, 1, resp.Transforms.InFlight)
		assert.Equal(t, 1, resp.Transforms.Waiting)
	})
}
