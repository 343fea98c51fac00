package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/dispatch-backend-go/internal/apperr"
)

func render(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestCreated(t *testing.T) {
	w, body := render(t, func(c *gin.Context) { Created(c, "done", gin.H{"id": 1}) })

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "done", body["message"])
	assert.Equal(t, map[string]any{"id": float64(1)}, body["data"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotContains(t, body, "code")
}

func TestFromErrorClientError(t *testing.T) {
	var client bool
	w, body := render(t, func(c *gin.Context) {
		client = FromError(c, apperr.ValidationFailed(map[string]string{"latitude": "must be less than or equal to 90"}))
	})

	assert.True(t, client)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
	assert.Equal(t, map[string]any{"latitude": "must be less than or equal to 90"}, body["errors"])
}

func TestFromErrorInternalHidesDetails(t *testing.T) {
	var client bool
	w, body := render(t, func(c *gin.Context) {
		client = FromError(c, errors.New("pq: connection refused to 10.0.0.3"))
	})

	assert.False(t, client)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}
