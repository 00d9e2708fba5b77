package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = "grupo;cota;credito;data_venda\n1234;56;100000;2026-01-10\n"

func setupUploadRouter(svc *MockImportService, maxUpload int64) *gin.Engine {
	h := NewUploadHandler(svc, maxUpload)
	r := newRouter(&masterActor)
	r.POST("/uploads/sales", h.Sales)
	r.POST("/uploads/statement", h.Statement)
	r.POST("/uploads/cancellations", h.Cancellations)
	r.POST("/uploads/edits", h.Edits)
	r.POST("/uploads/deletes", h.Deletes)
	r.POST("/rules/import", h.Rules)
	return r
}

func multipartRequest(t *testing.T, path, field, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sampleResult() *batch.Result {
	return &batch.Result{
		Run: &bulk.BatchRun{ID: uuid.New(), Operation: bulk.OperationIntake, Status: bulk.RunStatusCompleted},
		Report: ledger.BatchReport{
			Operation: "intake",
			Processed: 2,
			Succeeded: 1,
			Log: []ledger.LogEntry{
				{Ref: "1234_56", Status: ledger.LogSuccess, Detail: "12 installments generated"},
				{Ref: "1234_57", Status: ledger.LogWarning, Detail: "credit above the rule maximum"},
			},
		},
	}
}

func TestUploadHandler_Sales(t *testing.T) {
	svc := new(MockImportService)
	res := sampleResult()
	svc.On("Sales", mock.Anything, masterActor, mock.MatchedBy(func(u *batch.Upload) bool {
		return u.FileName == "vendas.csv" && string(u.Data) == salesCSV
	})).Return(res, nil)

	w := httptest.NewRecorder()
	setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, "/uploads/sales", "file", "vendas.csv", salesCSV))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp BatchResponse
	decodeData(t, w, &resp)
	assert.Equal(t, res.Run.ID.String(), resp.RunID)
	assert.Equal(t, bulk.RunStatusCompleted, resp.Status)
	assert.Equal(t, 2, resp.Report.Processed)
	require.Len(t, resp.Report.Log, 2)
	assert.Equal(t, ledger.LogWarning, resp.Report.Log[1].Status)
	svc.AssertExpectations(t)
}

func TestUploadHandler_EachOperation(t *testing.T) {
	routes := map[string]string{
		"/uploads/statement":     "Statement",
		"/uploads/cancellations": "Cancellations",
		"/uploads/edits":         "Edits",
		"/uploads/deletes":       "Deletes",
		"/rules/import":          "Rules",
	}
	for path, method := range routes {
		t.Run(method, func(t *testing.T) {
			svc := new(MockImportService)
			svc.On(method, mock.Anything, masterActor, mock.Anything).Return(sampleResult(), nil)

			w := httptest.NewRecorder()
			setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, path, "file", "f.csv", "id\nX\n"))

			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestUploadHandler_LogAsSpreadsheet(t *testing.T) {
	svc := new(MockImportService)
	svc.On("Sales", mock.Anything, masterActor, mock.Anything).Return(sampleResult(), nil)

	w := httptest.NewRecorder()
	setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, "/uploads/sales?format=xlsx", "file", "vendas.csv", salesCSV))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, spreadsheet.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "intake_log.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Log")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, batch.LogColumns, rows[0])
	assert.Equal(t, "Warning", rows[2][2])
}

func TestUploadHandler_LogAsCSV(t *testing.T) {
	svc := new(MockImportService)
	svc.On("Sales", mock.Anything, masterActor, mock.Anything).Return(sampleResult(), nil)

	w := httptest.NewRecorder()
	setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, "/uploads/sales?format=csv", "file", "vendas.csv", salesCSV))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Body.String(), "1234_57")
}

func TestUploadHandler_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		fileName   string
		content    string
		maxUpload  int64
		wantStatus int
		wantCode   string
	}{
		{"missing file field", "upload", "vendas.csv", salesCSV, 0, http.StatusBadRequest, dto.ErrCodeInvalidFile},
		{"unsupported extension", "file", "vendas.pdf", salesCSV, 0, http.StatusBadRequest, dto.ErrCodeInvalidFile},
		{"file too large", "file", "vendas.csv", salesCSV, 10, http.StatusRequestEntityTooLarge, dto.ErrCodeFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockImportService)

			w := httptest.NewRecorder()
			setupUploadRouter(svc, tt.maxUpload).ServeHTTP(w, multipartRequest(t, "/uploads/sales", tt.field, tt.fileName, tt.content))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w).Error.Code)
			svc.AssertNotCalled(t, "Sales", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUploadHandler_MissingHeaders(t *testing.T) {
	svc := new(MockImportService)
	svc.On("Sales", mock.Anything, masterActor, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_FILE", "missing columns: grupo, cota"))

	w := httptest.NewRecorder()
	setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, "/uploads/sales", "file", "vendas.csv", "x\n1\n"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeInvalidFile, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "grupo")
}

func TestUploadHandler_RolledBackBatch(t *testing.T) {
	svc := new(MockImportService)
	res := &batch.Result{
		Run: &bulk.BatchRun{ID: uuid.New(), Status: bulk.RunStatusRolledBack},
		Report: ledger.BatchReport{
			Operation: "intake",
			Processed: 1,
			Log:       []ledger.LogEntry{{Ref: "9_9", Status: ledger.LogError, Detail: "insert failed"}},
		},
	}
	svc.On("Sales", mock.Anything, masterActor, mock.Anything).Return(res, nil)

	w := httptest.NewRecorder()
	setupUploadRouter(svc, 0).ServeHTTP(w, multipartRequest(t, "/uploads/sales", "file", "vendas.csv", salesCSV))

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchResponse
	decodeData(t, w, &resp)
	assert.Equal(t, bulk.RunStatusRolledBack, resp.Status)
	assert.Equal(t, 0, resp.Report.Succeeded)
}
