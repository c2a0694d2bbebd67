package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/hlong026/WeKnow-design/internal/metrics"
)

// ProgressFunc receives upload progress as bytes sent out of total.
type ProgressFunc func(sent, total int64)

type formPart struct {
	field    string
	value    string
	filename string
	content  io.Reader
	isFile   bool
}

// Form is an ordered multipart body.
type Form struct {
	parts []formPart
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// AddField appends a text field.
func (f *Form) AddField(name, value string) *Form {
	f.parts = append(f.parts, formPart{field: name, value: value})
	return f
}

// AddFile appends a file part read from content.
func (f *Form) AddFile(field, filename string, content io.Reader) *Form {
	f.parts = append(f.parts, formPart{field: field, filename: filename, content: content, isFile: true})
	return f
}

// encode renders the form and returns the body with its content type.
func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, part := range f.parts {
		if !part.isFile {
			if err := w.WriteField(part.field, part.value); err != nil {
				return nil, "", err
			}
			continue
		}
		dst, err := w.CreateFormFile(part.field, part.filename)
		if err != nil {
			return nil, "", err
		}
		if part.content != nil {
			if _, err := io.Copy(dst, part.content); err != nil {
				return nil, "", fmt.Errorf("read %s: %w", part.filename, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// PostUpload posts form as multipart/form-data, reporting progress while the
// body is written.
func (c *Client) PostUpload(ctx context.Context, path string, form *Form, onProgress ProgressFunc, opts ...CallOption) (*Result, error) {
	if form == nil {
		form = NewForm()
	}
	data, contentType, err := form.encode()
	if err != nil {
		return nil, fmt.Errorf("encode multipart body: %w", err)
	}
	total := int64(len(data))
	env := &Envelope{
		Method:        http.MethodPost,
		Path:          path,
		Body:          newProgressReader(data, onProgress),
		ContentLength: total,
		Header:        http.Header{"Content-Type": []string{contentType}},
		Kind:          KindMultipart,
	}
	res, err := c.Do(ctx, env, opts...)
	if err == nil {
		metrics.AddUploadBytes(total)
	}
	return res, err
}

type progressReader struct {
	mu    sync.Mutex
	data  []byte
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func newProgressReader(data []byte, fn ProgressFunc) *progressReader {
	return &progressReader{data: data, r: bytes.NewReader(data), total: int64(len(data)), fn: fn}
}

// Rewind returns a fresh reader over the same body; progress restarts at zero.
func (p *progressReader) Rewind() io.Reader {
	return newProgressReader(p.data, p.fn)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		p.fn(sent, p.total)
	}
	return n, err
}
