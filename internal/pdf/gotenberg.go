package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"cotizador_backend/internal/document"
)

const (
	docxMIME             = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	libreOfficeConvert   = "/forms/libreoffice/convert"
	maxGotenbergResponse = 64 << 20
)

// GotenbergClient converts documents through a Gotenberg instance's
// LibreOffice route.
type GotenbergClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewGotenbergClient creates a client pointing at the given Gotenberg URL.
// If username and password are non-empty, every request will include HTTP Basic Auth.
func NewGotenbergClient(baseURL, username, password string) *GotenbergClient {
	return &GotenbergClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Name implements Exporter.
func (g *GotenbergClient) Name() string { return EngineGotenberg }

// Export sends the DOCX to Gotenberg and returns the PDF.
func (g *GotenbergClient) Export(ctx context.Context, doc document.FilledDocument) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := doc.Name
	if name == "" {
		name = "document.docx"
	}
	if err := addFilePart(writer, name, docxMIME, doc.Content); err != nil {
		return nil, failed(EngineGotenberg, "build request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, failed(EngineGotenberg, "build request", fmt.Errorf("close multipart writer: %w", err))
	}

	return g.doPost(ctx, libreOfficeConvert, body, writer.FormDataContentType())
}

// doPost sends a POST request and reads the response body.
func (g *GotenbergClient) doPost(ctx context.Context, path string, body *bytes.Buffer, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return nil, unavailable(EngineGotenberg, "invalid gotenberg url", err)
	}
	req.Header.Set("Content-Type", contentType)
	if g.username != "" && g.password != "" {
		req.SetBasicAuth(g.username, g.password)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, failed(EngineGotenberg, "conversion interrupted", ctxErr)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, failed(EngineGotenberg, "gotenberg timed out", err)
		}
		return nil, unavailable(EngineGotenberg, "gotenberg unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, unavailable(EngineGotenberg,
			fmt.Sprintf("gotenberg %s returned %d", path, resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, failed(EngineGotenberg,
			fmt.Sprintf("gotenberg %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(errBody))), nil)
	}

	result, err := io.ReadAll(io.LimitReader(resp.Body, maxGotenbergResponse))
	if err != nil {
		return nil, failed(EngineGotenberg, "read gotenberg response", err)
	}
	return result, nil
}

// addFilePart adds a file to the multipart form.
func addFilePart(w *multipart.Writer, filename, mimeType string, content []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("write part %s: %w", filename, err)
	}
	return nil
}
