package backend

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
	"time"

	"github.com/google/go-querystring/query"
	"github.com/vodchyts/repairdesk/internal/models"
)

const (
	// jsonTimeout bounds ordinary JSON calls.
	jsonTimeout = 10 * time.Second
	// uploadTimeout bounds multipart uploads and binary downloads.
	uploadTimeout = 30 * time.Second
	// apiKeyHeader carries the shared secret on every call.
	apiKeyHeader = "X-API-KEY"
)

// Client implements API against a live backend over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	json    *http.Client
	upload  *http.Client
}

var _ API = (*Client)(nil)

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL string
	APIKey  string
	// For testing: override the underlying HTTP clients.
	HTTPClient   *http.Client
	UploadClient *http.Client
}

// NewClient creates a backend Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("backend: API key is required")
	}
	jc := opts.HTTPClient
	if jc == nil {
		jc = &http.Client{Timeout: jsonTimeout}
	}
	uc := opts.UploadClient
	if uc == nil {
		uc = &http.Client{Timeout: uploadTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		json:    jc,
		upload:  uc,
	}, nil
}

// doJSON performs a JSON request and decodes the response into out (when
// out is non-nil). Any transport error, non-2xx status, or decode error is
// returned as a single wrapped error.
func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: %s %s: encode: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.json.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: %s %s: decode: %w", method, path, err)
	}
	return nil
}

// GetUserByTelegramID resolves a platform user ID to a backend user.
func (c *Client) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.UserInfo, error) {
	var user models.UserInfo
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bot/user/telegram/%d", telegramID), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetChatInfo resolves a group chat to its shop/contractor binding.
func (c *Client) GetChatInfo(ctx context.Context, chatID int64) (*models.ChatInfo, error) {
	var info models.ChatInfo
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bot/chat/%d", chatID), nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListRequests fetches one page of the filtered request list.
func (c *Client) ListRequests(ctx context.Context, q ListQuery) (*models.RequestPage, error) {
	params, err := query.Values(q)
	if err != nil {
		return nil, fmt.Errorf("backend: list requests: encode query: %w", err)
	}
	var page models.RequestPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/bot/requests", params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRequest fetches a single request visible to the given user.
func (c *Client) GetRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error) {
	params := url.Values{"telegramId": {fmt.Sprint(telegramID)}}
	var req models.Request
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bot/requests/%d", requestID), params, nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateRequest submits a new request.
func (c *Client) CreateRequest(ctx context.Context, payload models.CreateRequest) (*models.Request, error) {
	var req models.Request
	if err := c.doJSON(ctx, http.MethodPost, "/api/bot/requests", nil, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequest submits edits to an existing request.
func (c *Client) UpdateRequest(ctx context.Context, requestID int64, payload models.UpdateRequest) (*models.Request, error) {
	var req models.Request
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/bot/requests/%d", requestID), nil, payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CompleteRequest marks an in-progress request as done on behalf of the
// assigned contractor.
func (c *Client) CompleteRequest(ctx context.Context, telegramID, requestID int64) (*models.Request, error) {
	body := map[string]int64{"telegramId": telegramID}
	var req models.Request
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/bot/requests/%d/complete", requestID), nil, body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListComments fetches all comments for a request.
func (c *Client) ListComments(ctx context.Context, requestID int64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bot/requests/%d/comments", requestID), nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment posts a new comment on behalf of the given user.
func (c *Client) AddComment(ctx context.Context, requestID, telegramID int64, text string) (*models.Comment, error) {
	body := map[string]any{"telegramId": telegramID, "commentText": text}
	var comment models.Comment
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/bot/requests/%d/comments", requestID), nil, body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, requestID, commentID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/bot/requests/%d/comments/%d", requestID, commentID), nil, nil, nil)
}

// ListPhotoIDs fetches the photo ID list for a request.
func (c *Client) ListPhotoIDs(ctx context.Context, requestID int64) ([]int64, error) {
	var ids []int64
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/bot/requests/%d/photos/ids", requestID), nil, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetPhoto downloads one photo as raw bytes.
func (c *Client) GetPhoto(ctx context.Context, photoID int64) ([]byte, error) {
	u := fmt.Sprintf("%s/api/requests/photos/%d", c.baseURL, photoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: get photo %d: %w", photoID, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: get photo %d: %w", photoID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("backend: get photo %d: status %d", photoID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: get photo %d: read: %w", photoID, err)
	}
	return data, nil
}

// UploadPhotos posts a batch of photos as one multipart request.
func (c *Client) UploadPhotos(ctx context.Context, requestID, telegramID int64, photos [][]byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("telegramId", fmt.Sprint(telegramID)); err != nil {
		return fmt.Errorf("backend: upload photos: %w", err)
	}
	for i, photo := range photos {
		part, err := w.CreateFormFile("files", fmt.Sprintf("photo-%d.jpg", i))
		if err != nil {
			return fmt.Errorf("backend: upload photos: %w", err)
		}
		if _, err := part.Write(photo); err != nil {
			return fmt.Errorf("backend: upload photos: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("backend: upload photos: %w", err)
	}

	u := fmt.Sprintf("%s/api/bot/requests/%d/photos", c.baseURL, requestID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return fmt.Errorf("backend: upload photos: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return fmt.Errorf("backend: upload photos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend: upload photos: status %d", resp.StatusCode)
	}
	return nil
}

// DeletePhoto removes one photo from a request.
func (c *Client) DeletePhoto(ctx context.Context, requestID, photoID int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/bot/requests/%d/photos/%d", requestID, photoID), nil, nil, nil)
}

// ListShops fetches the full shop dictionary.
func (c *Client) ListShops(ctx context.Context) ([]models.Shop, error) {
	params := url.Values{"size": {"1000"}}
	var page models.ShopPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/shops", params, nil, &page); err != nil {
		return nil, err
	}
	return page.Content, nil
}

// ListContractors fetches all contractor users.
func (c *Client) ListContractors(ctx context.Context) ([]models.Contractor, error) {
	var contractors []models.Contractor
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/contractors", nil, nil, &contractors); err != nil {
		return nil, err
	}
	return contractors, nil
}

// ListWorkCategories fetches the full work-category dictionary.
func (c *Client) ListWorkCategories(ctx context.Context) ([]models.WorkCategory, error) {
	params := url.Values{"size": {"1000"}}
	var page models.WorkCategoryPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/work-categories", params, nil, &page); err != nil {
		return nil, err
	}
	return page.Content, nil
}

// ListUrgencies fetches all urgency categories.
func (c *Client) ListUrgencies(ctx context.Context) ([]models.Urgency, error) {
	var urgencies []models.Urgency
	if err := c.doJSON(ctx, http.MethodGet, "/api/urgency-categories", nil, nil, &urgencies); err != nil {
		return nil, err
	}
	return urgencies, nil
}
