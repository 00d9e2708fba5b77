// Package batch runs spreadsheet batches against the ledger: one transaction per
// batch, a persisted run record, cache invalidation and the optional archive of the
// uploaded file and its result log.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/google/uuid"
)

// ArchiveStore keeps uploaded files and result logs
type ArchiveStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Upload is the file a batch was read from
type Upload struct {
	FileName string
	Data     []byte
}

// Size returns the upload size in bytes
func (u *Upload) Size() int64 {
	if u == nil {
		return 0
	}
	return int64(len(u.Data))
}

// ArchiveKeys returns the object keys of a run: batches/{operation}/{yyyy}/{mm}/{id}/...
func ArchiveKeys(op bulk.Operation, id uuid.UUID, startedAt time.Time, fileName string) (uploadKey, logKey string) {
	prefix := path.Join("batches", string(op), startedAt.Format("2006"), startedAt.Format("01"), id.String())
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".bin"
	}
	return path.Join(prefix, "upload"+ext), path.Join(prefix, "log.xlsx")
}

// LogColumns are the headers of a rendered batch log
var LogColumns = []string{"Linha", "Referencia", "Status", "Detalhe"}

// LogTable renders the report as a sheet. The summary sheet carries the counters.
func LogTable(report ledger.BatchReport) []spreadsheet.Table {
	rows := make([][]string, 0, len(report.Log))
	for i, e := range report.Log {
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Ref, string(e.Status), e.Detail})
	}
	summary := spreadsheet.Table{
		Name:    "Resumo",
		Headers: []string{"Operacao", "Processados", "Sucesso", "Bloqueados", "Ignorados", "Erros", "Avisos"},
		Rows: [][]string{{
			report.Operation,
			strconv.Itoa(report.Processed),
			strconv.Itoa(report.Succeeded),
			strconv.Itoa(report.Count(ledger.LogBlocked)),
			strconv.Itoa(report.Count(ledger.LogIgnored)),
			strconv.Itoa(report.Count(ledger.LogError)),
			strconv.Itoa(report.Count(ledger.LogWarning)),
		}},
	}
	return []spreadsheet.Table{{Name: "Log", Headers: LogColumns, Rows: rows}, summary}
}

// RenderLog writes the report in the given format
func RenderLog(report ledger.BatchReport, format spreadsheet.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := spreadsheet.Write(&buf, format, LogTable(report)...); err != nil {
		return nil, fmt.Errorf("failed to render batch log: %w", err)
	}
	return buf.Bytes(), nil
}
