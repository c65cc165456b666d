package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"golang.org/x/oauth2"

	"github.com/borgframework/borg/internal/borg"
)

const driveUploadURL = "https://www.googleapis.com/upload/drive/v3/files?uploadType=multipart"

// DriveAction uploads the upstream payload to Google Drive as a file.
// Parameters: filename (required), folder_id, mime_type.
type DriveAction struct {
	token     string
	uploadURL string
}

func NewDriveAction(accessToken string) *DriveAction {
	return &DriveAction{token: accessToken, uploadURL: driveUploadURL}
}

func (a *DriveAction) Type() string { return "drive" }

func (a *DriveAction) Execute(ctx context.Context, params map[string]any, input any) (any, error) {
	if a.token == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "drive action has no access token configured", nil)
	}
	filename := paramString(params, "filename")
	if filename == "" {
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "drive action requires a 'filename' parameter", nil)
	}
	mimeType := paramString(params, "mime_type")
	if mimeType == "" {
		mimeType = "text/plain"
	}

	content, err := fileContent(input)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"name": filename}
	if folder := paramString(params, "folder_id"); folder != "" {
		meta["parents"] = []string{folder}
	}

	body, contentType, err := multipartUpload(meta, mimeType, content)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.token})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = 60 * time.Second

	resp, err := client.Do(req)
	if err != nil {
		return nil, borg.NewAdapterError(borg.ErrProviderUnavailable, "drive upload failed", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if resp.StatusCode >= 400 {
		kind := borg.ErrProviderRejected
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			kind = borg.ErrRateLimited
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			kind = borg.ErrInvalidConfiguration
		case resp.StatusCode >= 500:
			kind = borg.ErrProviderUnavailable
		}
		return nil, borg.NewAdapterError(kind,
			fmt.Sprintf("drive upload returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("decode drive response: %w", err)
	}
	return map[string]any{"status": "uploaded", "file_id": created.ID, "name": created.Name}, nil
}

func fileContent(input any) ([]byte, error) {
	switch v := input.(type) {
	case nil:
		return nil, borg.NewAdapterError(borg.ErrInvalidConfiguration, "drive action has no content to upload", nil)
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		data, err := json.MarshalIndent(input, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return data, nil
	}
}

// multipartUpload builds the two-part related body the Drive upload
// endpoint expects: JSON metadata then media content.
func multipartUpload(meta map[string]any, mimeType string, content []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := mediaPart.Write(content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, "multipart/related; boundary=" + w.Boundary(), nil
}
