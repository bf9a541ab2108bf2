package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// APIKeyHeader carries the optional API key on upload requests.
const APIKeyHeader = "X-API-Key"

// HTTPTransport posts files to {Endpoint}/upload/{courier} as multipart
// form data. It sets no timeout of its own; callers bound a request
// through ctx.
type HTTPTransport struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func (t *HTTPTransport) httpClient() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t *HTTPTransport) uploadURL(courier string) string {
	return strings.TrimRight(t.Endpoint, "/") + "/upload/" + url.PathEscape(courier)
}

// Upload sends file under the form field "file" and returns the body of a
// 2xx response. Failures are TransportError or ServerError values.
func (t *HTTPTransport) Upload(ctx context.Context, courier string, file File) ([]byte, error) {
	body, contentType, err := multipartFile(file)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL(courier), body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if t.APIKey != "" {
		req.Header.Set(APIKeyHeader, t.APIKey)
	}

	resp, err := t.httpClient().Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(resp.StatusCode, data)
	}
	return data, nil
}

func multipartFile(file File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	if _, err := fw.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// serverError reads the "detail" string of a failure body, falling back to
// the generic message when the body is not JSON or has no usable detail.
func serverError(status int, body []byte) *ServerError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &ServerError{
			StatusCode: status,
			Detail:     msgUploadFailed,
			Err:        &MalformedResponseError{Err: err},
		}
	}

	var detail string
	if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
		return &ServerError{StatusCode: status, Detail: detail}
	}
	return &ServerError{StatusCode: status, Detail: msgUploadFailed}
}
