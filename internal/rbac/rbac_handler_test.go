package rbac

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"leavedesk/internal/domain"
)

type mockService struct{}

func (m *mockService) LoadPolicy() error {
	return nil
}

func (m *mockService) Enforce(req domain.EnforceRequest) (bool, error) {
	if req.Role == "manager" && req.Resource == "leave" && req.Action == "approve" {
		return true, nil
	}
	return false, nil
}

func TestHandler_Enforce(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHandler(&mockService{})

	router := gin.Default()
	router.POST("/rbac/enforce", handler.Enforce)

	body := domain.EnforceRequest{
		UserID:   "user-1",
		Role:     "manager",
		Resource: "leave",
		Action:   "approve",
	}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest(
		http.MethodPost,
		"/rbac/enforce",
		bytes.NewBuffer(jsonBody),
	)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Ok   bool                   `json:"ok"`
		Data domain.EnforceResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &envelope)
	assert.NoError(t, err)

	assert.True(t, envelope.Ok)
	assert.True(t, envelope.Data.Allowed)
}
