// Package client is a typed HTTP client for the threadline API together with
// the optimistic mutation coordinator used by interactive front ends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"threadline/internal/models"
)

const DefaultBaseURL = "http://localhost:8375/api"

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status     int
	Code       string
	Reason     string
	Message    string
	Fields     []models.FieldError
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%d %s/%s: %s", e.Status, e.Code, e.Reason, e.Message)
	}
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying later may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

type FollowState struct {
	IsFollowing bool   `json:"isFollowing"`
	Followers   *int64 `json:"followers,omitempty"`
	Following   *int64 `json:"following,omitempty"`
}

type FeedPage struct {
	Threads        []*models.PostView `json:"threads"`
	NextCursor     string             `json:"nextCursor,omitempty"`
	HasMore        bool               `json:"hasMore"`
	FollowingCount *int64             `json:"followingCount,omitempty"`
}

type ReplyPage struct {
	Replies    []*models.PostView `json:"replies"`
	NextCursor string             `json:"nextCursor,omitempty"`
	HasMore    bool               `json:"hasMore"`
	Total      int64              `json:"total"`
}

type NotificationPage struct {
	Notifications []*models.Notification `json:"notifications"`
	NextCursor    string                 `json:"nextCursor,omitempty"`
	HasMore       bool                   `json:"hasMore"`
	Unread        int64                  `json:"unread"`
}

// PageParams selects one page of a cursor-paginated listing.
type PageParams struct {
	Cursor string
	Limit  int
}

func (p PageParams) values() url.Values {
	v := url.Values{}
	if p.Cursor != "" {
		v.Set("cursor", p.Cursor)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	return v
}

type Draft struct {
	Content       string   `json:"content"`
	Media         []string `json:"media,omitempty"`
	ParentPostID  string   `json:"-"`
	ParentReplyID string   `json:"parentReplyId,omitempty"`
}

// API talks to a threadline server.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

type Option func(*API)

func WithToken(token string) Option {
	return func(a *API) { a.Token = token }
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.HTTPClient = c }
}

func NewAPI(baseURL string, opts ...Option) *API {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	a := &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) LikeStatus(ctx context.Context, postID string) (LikeState, error) {
	var out LikeState
	err := a.do(ctx, http.MethodGet, "/interactions/"+url.PathEscape(postID)+"/like", nil, nil, &out)
	return out, err
}

func (a *API) ToggleLike(ctx context.Context, postID string) (LikeState, error) {
	var out LikeState
	err := a.do(ctx, http.MethodPost, "/interactions/"+url.PathEscape(postID)+"/like", nil, nil, &out)
	return out, err
}

func (a *API) FollowStatus(ctx context.Context, userID string) (FollowState, error) {
	var out FollowState
	err := a.do(ctx, http.MethodGet, "/follows/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

func (a *API) Follow(ctx context.Context, userID string) (FollowState, error) {
	var out FollowState
	err := a.do(ctx, http.MethodPost, "/follows/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

func (a *API) Unfollow(ctx context.Context, userID string) (FollowState, error) {
	var out FollowState
	err := a.do(ctx, http.MethodDelete, "/follows/"+url.PathEscape(userID), nil, nil, &out)
	return out, err
}

func (a *API) Feed(ctx context.Context, p PageParams) (*FeedPage, error) {
	var out FeedPage
	if err := a.do(ctx, http.MethodGet, "/feed", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) FollowingFeed(ctx context.Context, p PageParams) (*FeedPage, error) {
	var out FeedPage
	if err := a.do(ctx, http.MethodGet, "/feed/following", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Replies(ctx context.Context, threadID string, p PageParams) (*ReplyPage, error) {
	var out ReplyPage
	if err := a.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID)+"/replies", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Thread(ctx context.Context, id string) (*models.PostView, error) {
	var out models.PostView
	if err := a.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost creates a thread, or a reply when d.ParentPostID is set.
func (a *API) CreatePost(ctx context.Context, d Draft) (*models.Post, error) {
	path := "/threads"
	if d.ParentPostID != "" {
		path = "/threads/" + url.PathEscape(d.ParentPostID) + "/replies"
	}
	var out models.Post
	if err := a.do(ctx, http.MethodPost, path, nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Notifications(ctx context.Context, p PageParams) (*NotificationPage, error) {
	var out NotificationPage
	if err := a.do(ctx, http.MethodGet, "/notifications", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	var out models.Notification
	if err := a.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := a.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
		apiErr.Reason = body.Reason
		apiErr.Fields = body.Fields
		if body.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(body.RetryAfter) * time.Second
		}
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}
	return apiErr
}
