package leave_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"leavedesk/internal/leave"
	leaveerrors "leavedesk/internal/leave/errors"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeLeaveService struct {
	applyFn         func(ctx context.Context, userID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error)
	decideFn        func(ctx context.Context, id string, actor leave.Actor, action string, note *string) (leave.LeaveResponse, error)
	cancelFn        func(ctx context.Context, id, userID string) (leave.LeaveResponse, error)
	pendingFn       func(ctx context.Context, actor leave.Actor) ([]leave.LeaveResponse, error)
	claimCompOffFn  func(ctx context.Context, userID string, req leave.ClaimCompOffRequest) (leave.CompOffResponse, error)
	decideCompOffFn func(ctx context.Context, id string, actor leave.Actor, action string) (leave.CompOffResponse, error)
}

func (f *fakeLeaveService) Apply(ctx context.Context, userID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
	return f.applyFn(ctx, userID, req)
}

func (f *fakeLeaveService) Decide(ctx context.Context, id string, actor leave.Actor, action string, note *string) (leave.LeaveResponse, error) {
	return f.decideFn(ctx, id, actor, action, note)
}

func (f *fakeLeaveService) Cancel(ctx context.Context, id, userID string) (leave.LeaveResponse, error) {
	return f.cancelFn(ctx, id, userID)
}

func (f *fakeLeaveService) RequestCancellation(ctx context.Context, id, userID string) (leave.LeaveResponse, error) {
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Get(ctx context.Context, id string, actor leave.Actor) (leave.LeaveResponse, error) {
	return leave.LeaveResponse{}, nil
}

func (f *fakeLeaveService) Mine(ctx context.Context, userID string) ([]leave.LeaveResponse, error) {
	return nil, nil
}

func (f *fakeLeaveService) Pending(ctx context.Context, actor leave.Actor) ([]leave.LeaveResponse, error) {
	return f.pendingFn(ctx, actor)
}

func (f *fakeLeaveService) ClaimCompOff(ctx context.Context, userID string, req leave.ClaimCompOffRequest) (leave.CompOffResponse, error) {
	return f.claimCompOffFn(ctx, userID, req)
}

func (f *fakeLeaveService) DecideCompOff(ctx context.Context, id string, actor leave.Actor, action string) (leave.CompOffResponse, error) {
	return f.decideCompOffFn(ctx, id, actor, action)
}

func (f *fakeLeaveService) MyCompOffs(ctx context.Context, userID string) ([]leave.CompOffResponse, error) {
	return nil, nil
}

func (f *fakeLeaveService) PendingCompOffs(ctx context.Context) ([]leave.CompOffResponse, error) {
	return nil, nil
}

func TestLeaveHandler_Apply(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		actorID := uuid.New().String()
		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, userID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				assert.Equal(t, actorID, userID)
				assert.Equal(t, "CASUAL", req.LeaveType)
				return leave.LeaveResponse{
					ID:           uuid.New().String(),
					UserID:       userID,
					LeaveType:    req.LeaveType,
					StartDate:    req.StartDate,
					DeductedDays: "5.00",
					Status:       string(leave.StatusPending),
				}, nil
			},
		}

		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"CASUAL","start_date":"2026-03-02","end_date":"2026-03-06","reason":"family trip"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("user_id_validated", actorID)

		h.Apply(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got leave.LeaveResponse
		err := json.Unmarshal(env.Data, &got)
		assert.NoError(t, err)
		assert.Equal(t, "5.00", got.DeductedDays)
		assert.Equal(t, string(leave.StatusPending), got.Status)
	})

	t.Run("negative validation error", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(`{}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.Apply(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("negative overlap returns conflict", func(t *testing.T) {
		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, userID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, leaveerrors.ErrLeaveOverlap
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"CASUAL","start_date":"2026-03-02","end_date":"2026-03-06"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("user_id_validated", uuid.New().String())

		h.Apply(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "CONFLICT", env.Error.Code)
		assert.Equal(t, "leave already exists in overlapping period", env.Error.Message)
	})

	t.Run("negative unexpected error is masked", func(t *testing.T) {
		svc := &fakeLeaveService{
			applyFn: func(ctx context.Context, userID string, req leave.ApplyLeaveRequest) (leave.LeaveResponse, error) {
				return leave.LeaveResponse{}, errors.New("pq: connection refused")
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"leave_type":"CASUAL","start_date":"2026-03-02","end_date":"2026-03-06"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("user_id_validated", uuid.New().String())

		h.Apply(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.NotNil(t, env.Error)
		assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
		assert.Equal(t, "An unexpected error occurred", env.Error.Message)
	})
}

func TestLeaveHandler_Decide(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success elevated role decides", func(t *testing.T) {
		actorID := uuid.New().String()
		leaveID := uuid.New().String()
		svc := &fakeLeaveService{
			decideFn: func(ctx context.Context, id string, actor leave.Actor, action string, note *string) (leave.LeaveResponse, error) {
				assert.Equal(t, leaveID, id)
				assert.Equal(t, actorID, actor.ID)
				assert.True(t, actor.Elevated)
				assert.Equal(t, leave.ActionApprove, action)
				return leave.LeaveResponse{ID: id, Status: string(leave.StatusApproved)}, nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/"+leaveID+"/decision", strings.NewReader(`{"action":"APPROVE"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = []gin.Param{{Key: "id", Value: leaveID}}
		c.Set("user_id_validated", actorID)
		c.Set("role", "hr")

		h.Decide(c)

		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
		var got leave.LeaveResponse
		err := json.Unmarshal(env.Data, &got)
		assert.NoError(t, err)
		assert.Equal(t, string(leave.StatusApproved), got.Status)
	})

	t.Run("negative action outside the allowed set", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/123/decision", strings.NewReader(`{"action":"DEFER"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = []gin.Param{{Key: "id", Value: "123"}}

		h.Decide(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("negative forbidden for a stranger", func(t *testing.T) {
		svc := &fakeLeaveService{
			decideFn: func(ctx context.Context, id string, actor leave.Actor, action string, note *string) (leave.LeaveResponse, error) {
				assert.False(t, actor.Elevated)
				return leave.LeaveResponse{}, leaveerrors.ErrNotApprover
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/leaves/123/decision", strings.NewReader(`{"action":"APPROVE"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = []gin.Param{{Key: "id", Value: "123"}}
		c.Set("user_id_validated", uuid.New().String())
		c.Set("role", "manager")

		h.Decide(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})
}

func TestLeaveHandler_ClaimCompOff(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success", func(t *testing.T) {
		actorID := uuid.New().String()
		svc := &fakeLeaveService{
			claimCompOffFn: func(ctx context.Context, userID string, req leave.ClaimCompOffRequest) (leave.CompOffResponse, error) {
				assert.Equal(t, actorID, userID)
				return leave.CompOffResponse{
					ID:       uuid.New().String(),
					UserID:   userID,
					WorkDate: req.WorkDate,
					Status:   string(leave.CompOffPending),
				}, nil
			},
		}
		h := leave.NewHandler(svc)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		body := `{"work_date":"2026-03-07","reason":"release weekend on-call"}`
		c.Request = httptest.NewRequest(http.MethodPost, "/comp-offs", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Set("user_id_validated", actorID)

		h.ClaimCompOff(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.True(t, env.Ok)
	})

	t.Run("negative missing reason", func(t *testing.T) {
		h := leave.NewHandler(&fakeLeaveService{})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/comp-offs", strings.NewReader(`{"work_date":"2026-03-07"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		h.ClaimCompOff(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w.Body.Bytes())
		assert.False(t, env.Ok)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})
}
