package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Upload forwards a file to the upstream CDN endpoint as multipart form
// data. The payload is fully buffered so the 401 replay can resend it.
func (a *Authed) Upload(ctx context.Context, fieldName string, filename string, contentType string, data []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(fieldName), escapeQuotes(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build multipart payload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart payload: %w", err)
	}

	body, err := a.DoRaw(ctx, http.MethodPost, "/cdn/upload", nil, buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return nil, err
	}

	return NormalizeObject(body)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
