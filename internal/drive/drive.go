// Package drive upserts note files into a Google Drive folder through the
// Drive v3 REST API.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"podcast-notes/internal/config"
)

const (
	markdownMIME    = "text/markdown"
	contentTypeNote = "text/markdown; charset=UTF-8"
	contentTypeJSON = "application/json; charset=UTF-8"
)

// Action is what Upsert did to the remote file.
type Action int

const (
	Created Action = iota + 1
	Updated
)

func (a Action) String() string {
	switch a {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "none"
	}
}

type Result struct {
	Action Action
	FileID string
}

// APIError is a non-2xx answer from Drive. Op is one of "query", "update"
// or "create".
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google drive %s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

type Client struct {
	http      *http.Client
	apiURL    string
	uploadURL string
}

// NewClient creates a Client for the endpoints in cfg. A nil httpClient
// means http.DefaultClient.
func NewClient(cfg config.DriveConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = config.DefaultDriveURL
	}
	uploadURL := strings.TrimRight(cfg.UploadURL, "/")
	if uploadURL == "" {
		uploadURL = config.DefaultDriveURL
	}
	return &Client{http: httpClient, apiURL: apiURL, uploadURL: uploadURL}
}

// Upsert makes sure folderID holds exactly one file called name with the
// given content: an existing file gets its content replaced, otherwise a
// new file is created. A failed lookup aborts without creating anything.
//
// The lookup and the write are not atomic; concurrent upserts of the same
// new name may both create a file.
func (c *Client) Upsert(ctx context.Context, token, folderID, name string, content []byte) (Result, error) {
	fileID, found, err := c.FindFile(ctx, token, folderID, name)
	if err != nil {
		return Result{}, err
	}
	if found {
		if err := c.UpdateContent(ctx, token, fileID, content); err != nil {
			return Result{}, err
		}
		return Result{Action: Updated, FileID: fileID}, nil
	}

	fileID, err = c.Create(ctx, token, folderID, name, content)
	if err != nil {
		return Result{}, err
	}
	return Result{Action: Created, FileID: fileID}, nil
}

type fileList struct {
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
}

// FindFile looks up a non-trashed file by exact name in folderID.
func (c *Client) FindFile(ctx context.Context, token, folderID, name string) (string, bool, error) {
	params := url.Values{
		"q":        {Query(folderID, name)},
		"fields":   {"files(id,name)"},
		"pageSize": {"1"},
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.apiURL+"/drive/v3/files?"+params.Encode(), token, nil)
	if err != nil {
		return "", false, err
	}

	body, err := c.do(req, "query")
	if err != nil {
		return "", false, err
	}

	var list fileList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", false, fmt.Errorf("decode drive file list: %w", err)
	}
	if len(list.Files) == 0 || list.Files[0].ID == "" {
		return "", false, nil
	}
	return list.Files[0].ID, true, nil
}

// UpdateContent replaces the content of fileID. Metadata is not touched.
func (c *Client) UpdateContent(ctx context.Context, token, fileID string, content []byte) error {
	target := c.uploadURL + "/upload/drive/v3/files/" + url.PathEscape(fileID) + "?uploadType=media"
	req, err := c.newRequest(ctx, http.MethodPatch, target, token, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentTypeNote)

	_, err = c.do(req, "update")
	return err
}

type fileMetadata struct {
	Name     string   `json:"name"`
	Parents  []string `json:"parents"`
	MimeType string   `json:"mimeType"`
}

// Create uploads a new file with metadata and content in one multipart
// request and returns the new file id.
func (c *Client) Create(ctx context.Context, token, folderID, name string, content []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(fileMetadata{Name: name, Parents: []string{folderID}, MimeType: markdownMIME})
	if err != nil {
		return "", fmt.Errorf("encode drive metadata: %w", err)
	}
	if err := writePart(mw, contentTypeJSON, meta); err != nil {
		return "", err
	}
	if err := writePart(mw, contentTypeNote, content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.uploadURL+"/upload/drive/v3/files?uploadType=multipart", token, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	body, err := c.do(req, "create")
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	// the upload already succeeded, an unexpected body only loses the id
	if err := json.Unmarshal(body, &created); err != nil {
		log.Debug().Err(err).Str("file", name).Str("body", string(body)).Msg("drive create response has no file id")
	}
	return created.ID, nil
}

func writePart(mw *multipart.Writer, contentType string, data []byte) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {contentType}})
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write multipart part: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create drive request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google drive %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive %s response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Query builds the Drive search expression matching name inside folderID.
func Query(folderID, name string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(folderID))
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
