package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrBackendUnavailable covers transport failures and non-2xx answers
	// from /ask. Callers substitute a synthetic bot message; the error
	// never reaches the UI layer.
	ErrBackendUnavailable = errors.New("exchange: backend unavailable")

	// ErrUploadFailed is the /upload counterpart of ErrBackendUnavailable.
	ErrUploadFailed = errors.New("exchange: upload failed")
)

// Client talks to the remote question-answering backend. It is the only
// network-facing component.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type askReq struct {
	Question string  `json:"question"`
	DocID    *string `json:"doc_id"`
}

type askResp struct {
	Response string `json:"response"`
}

// Ask sends a question, scoped to the bound document when docID is set,
// and returns the bot's reply text.
func (c *Client) Ask(ctx context.Context, question string, docID *string) (string, error) {
	body, err := json.Marshal(askReq{Question: question, DocID: docID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}

	var decoded askResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return decoded.Response, nil
}

// UploadResult carries the opaque document handle plus the backend's
// acknowledgement text, shown to the user as a bot message.
type UploadResult struct {
	DocumentID          string
	AcknowledgementText string
}

type uploadResp struct {
	DocID   string `json:"doc_id"`
	Message string `json:"message"`
}

// Upload sends a PDF as a multipart payload and returns the document id
// the backend assigned to it.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, fmt.Errorf("%w: status %d", ErrUploadFailed, resp.StatusCode)
	}

	var decoded uploadResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if decoded.DocID == "" {
		return UploadResult{}, fmt.Errorf("%w: empty doc_id", ErrUploadFailed)
	}
	return UploadResult{DocumentID: decoded.DocID, AcknowledgementText: decoded.Message}, nil
}
