package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupHistoryRouter(svc *MockHistoryService) *gin.Engine {
	h := NewHistoryHandler(svc)
	r := newRouter(&masterActor)
	r.GET("/batches", h.List)
	r.GET("/batches/:id", h.Get)
	r.GET("/batches/:id/log", h.LogDownload)
	r.GET("/batches/:id/upload", h.UploadDownload)
	return r
}

func TestHistoryHandler_List(t *testing.T) {
	svc := new(MockHistoryService)
	runs := shared.NewPaginated([]bulk.BatchRun{{ID: uuid.New(), Operation: bulk.OperationIntake}}, 1, 1, 20)
	svc.On("List", mock.Anything, mock.MatchedBy(func(q batch.RunQuery) bool {
		return q.Operation == "intake" && q.RunBy == "1" && q.PageSize == 20
	})).Return(runs, nil)

	w := perform(setupHistoryRouter(svc), http.MethodGet, "/batches?operation=intake&run_by=1&page_size=20", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, 20, resp.Meta.PageSize)
	svc.AssertExpectations(t)
}

func TestHistoryHandler_Get(t *testing.T) {
	svc := new(MockHistoryService)
	id := uuid.New()
	svc.On("Get", mock.Anything, id).Return(&bulk.BatchRun{ID: id, Status: bulk.RunStatusCompleted}, nil)

	w := perform(setupHistoryRouter(svc), http.MethodGet, "/batches/"+id.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var run bulk.BatchRun
	decodeData(t, w, &run)
	assert.Equal(t, id, run.ID)
}

func TestHistoryHandler_LogDownload(t *testing.T) {
	svc := new(MockHistoryService)
	id := uuid.New()
	expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	svc.On("LogDownload", mock.Anything, id).
		Return(&batch.DownloadLink{URL: "https://bucket.s3/log.xlsx?sig", ExpiresAt: expires}, nil)

	w := perform(setupHistoryRouter(svc), http.MethodGet, "/batches/"+id.String()+"/log", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var link batch.DownloadLink
	decodeData(t, w, &link)
	assert.Equal(t, "https://bucket.s3/log.xlsx?sig", link.URL)
	assert.True(t, expires.Equal(link.ExpiresAt))
}

func TestHistoryHandler_UploadDownloadWithoutArchive(t *testing.T) {
	svc := new(MockHistoryService)
	id := uuid.New()
	svc.On("UploadDownload", mock.Anything, id).
		Return(nil, shared.NewDomainError("NOT_FOUND", "archive storage is disabled"))

	w := perform(setupHistoryRouter(svc), http.MethodGet, "/batches/"+id.String()+"/upload", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler_MalformedID(t *testing.T) {
	svc := new(MockHistoryService)

	w := perform(setupHistoryRouter(svc), http.MethodGet, "/batches/123", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
