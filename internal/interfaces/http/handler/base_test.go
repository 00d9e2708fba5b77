package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/consorcio/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

var (
	masterActor = identity.Actor{UserID: "1", Role: identity.RoleMaster}
	sellerActor = identity.Actor{UserID: "42", Role: identity.RoleSalesperson}
)

// asActor simulates the JWT middleware for the actor
func asActor(actor identity.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: actor.UserID, Role: string(actor.Role)})
		c.Set(middleware.JWTUserIDKey, actor.UserID)
		c.Set(middleware.JWTRoleKey, string(actor.Role))
		c.Next()
	}
}

func newRouter(actor *identity.Actor) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if actor != nil {
		r.Use(asActor(*actor))
	}
	return r
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// decodeData unmarshals the data field of a success response into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, dto.ErrCodeForbidden},
		{"conflict", shared.NewDomainError("CONFLICT", "in use"), http.StatusConflict, dto.ErrCodeConflict},
		{"unmapped invalid code", shared.NewDomainError("INVALID_DUE_DAY", "bad day"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"protected user", shared.NewDomainError("MASTER_USER_PROTECTED", "no"), http.StatusUnprocessableEntity, dto.ErrCodeProtectedUser},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			r := newRouter(nil)
			r.GET("/", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := perform(r, http.MethodGet, "/", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
			assert.NotContains(t, w.Body.String(), "db down")
		})
	}
}

func TestBaseHandler_BindJSON(t *testing.T) {
	h := &BaseHandler{}
	r := newRouter(nil)
	r.POST("/", func(c *gin.Context) {
		var req LoginRequest
		if !h.bindJSON(c, &req) {
			return
		}
		h.Success(c, req.Username)
	})

	t.Run("validation details use json names", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/", map[string]string{"username": "ana"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "password", resp.Error.Details[0].Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, w).Error.Code)
	})
}

func TestBaseHandler_ActorRequired(t *testing.T) {
	h := NewAuthHandler(new(MockAuthService))
	r := newRouter(nil)
	r.GET("/me", h.GetCurrentUser)

	w := perform(r, http.MethodGet, "/me", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeUnauthorized, decode(t, w).Error.Code)
}

func TestPage_EmptyItemsEncodeAsArray(t *testing.T) {
	r := newRouter(nil)
	r.GET("/", func(c *gin.Context) {
		p := shared.NewPaginated[string](nil, 0, 1, 50)
		Page(c, &p)
	})

	w := perform(r, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[],"meta":{"total":0,"page":1,"page_size":50,"total_pages":0}}`, w.Body.String())
}
