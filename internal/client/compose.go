package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"threadline/internal/models"

	"github.com/google/uuid"
)

var ErrUnknownPlaceholder = errors.New("client: no failed placeholder with that id")

type PostAPI interface {
	CreatePost(ctx context.Context, d Draft) (*models.Post, error)
}

// Placeholder stands in for a post the server has not confirmed yet.
type Placeholder struct {
	ID        string
	Draft     Draft
	CreatedAt time.Time
	IsPending bool
	Failed    bool
	Error     string
}

// PostComposer keeps placeholders for posts being created, newest first.
// Confirmed posts are dropped from the list; they reach the UI through the
// next feed refresh. Failed ones stay until retried or discarded.
type PostComposer struct {
	mu           sync.Mutex
	placeholders []*Placeholder

	mutation *Mutation[Draft, *models.Post, string]
}

func NewPostComposer(api PostAPI) *PostComposer {
	c := &PostComposer{}
	c.mutation = NewMutation(api.CreatePost, Hooks[Draft, *models.Post, string]{
		OnMutate:  c.insert,
		OnSuccess: c.confirm,
		OnError:   c.fail,
	})
	return c
}

func (c *PostComposer) Submit(ctx context.Context, d Draft) (*models.Post, error) {
	return c.mutation.Mutate(ctx, d)
}

// Retry resubmits a failed placeholder's draft.
func (c *PostComposer) Retry(ctx context.Context, id string) (*models.Post, error) {
	p, ok := c.take(id)
	if !ok {
		return nil, ErrUnknownPlaceholder
	}
	return c.Submit(ctx, p.Draft)
}

// Discard drops a failed placeholder.
func (c *PostComposer) Discard(id string) bool {
	_, ok := c.take(id)
	return ok
}

// Placeholders returns a copy of the current list, newest first.
func (c *PostComposer) Placeholders() []Placeholder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Placeholder, len(c.placeholders))
	for i, p := range c.placeholders {
		out[i] = *p
	}
	return out
}

func (c *PostComposer) State() State { return c.mutation.State() }

func (c *PostComposer) insert(d Draft) string {
	p := &Placeholder{
		ID:        uuid.NewString(),
		Draft:     d,
		CreatedAt: time.Now(),
		IsPending: true,
	}
	c.mu.Lock()
	c.placeholders = append([]*Placeholder{p}, c.placeholders...)
	c.mu.Unlock()
	return p.ID
}

func (c *PostComposer) confirm(_ *models.Post, _ Draft, id string) {
	c.mu.Lock()
	c.remove(id)
	c.mu.Unlock()
}

func (c *PostComposer) fail(err error, _ Draft, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.placeholders {
		if p.ID == id {
			p.IsPending = false
			p.Failed = true
			p.Error = errorMessage(err)
			return
		}
	}
}

// take removes and returns a failed placeholder.
func (c *PostComposer) take(id string) (*Placeholder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.placeholders {
		if p.ID == id && p.Failed {
			c.remove(id)
			return p, true
		}
	}
	return nil, false
}

func (c *PostComposer) remove(id string) {
	for i, p := range c.placeholders {
		if p.ID == id {
			c.placeholders = append(c.placeholders[:i], c.placeholders[i+1:]...)
			return
		}
	}
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
