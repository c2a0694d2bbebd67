package api

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/hlong026/WeKnow-design/internal/request"
)

// Upload is a file to send in a multipart request.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// ExportOptions lists what can be exported with per-table counts.
func (s *Service) ExportOptions(ctx context.Context) ([]ExportOption, error) {
	res, err := s.client.Get(ctx, "/api/v1/system/backup/options")
	if err != nil {
		return nil, err
	}
	opts, err := decodeData[[]ExportOption](res, "获取导出选项失败")
	if err != nil {
		return nil, err
	}
	return *opts, nil
}

// ExportData downloads a backup archive.
func (s *Service) ExportData(ctx context.Context, req ExportRequest) (*request.Blob, error) {
	return s.client.PostBinary(ctx, "/api/v1/system/backup/export", req)
}

// ImportData uploads a backup archive. Files over the configured limit are
// rejected with request.ErrPayloadTooLarge before anything is sent.
func (s *Service) ImportData(ctx context.Context, file Upload, skipExisting bool, onProgress request.ProgressFunc) (*ImportResult, error) {
	if s.opts.MaxUploadBytes > 0 && file.Size > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", request.ErrPayloadTooLarge, file.Name, file.Size, s.opts.MaxUploadBytes)
	}
	form := request.NewForm().
		AddFile("file", file.Name, file.Content).
		AddField("skip_existing", strconv.FormatBool(skipExisting))
	res, err := s.client.PostUpload(ctx, "/api/v1/system/backup/import", form, onProgress)
	if err != nil {
		return nil, err
	}
	return decodeData[ImportResult](res, "导入失败")
}
