// Package validation holds input rules for user-submitted content.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"threadline/internal/models"
)

const (
	MaxPostRunes   = 500
	MaxMediaRefs   = 4
	maxMediaRefLen = 2048
)

// PostInput is the user-controlled part of a new thread or reply.
type PostInput struct {
	Content       string
	Media         []string
	ParentPostID  string
	ParentReplyID string
}

// ValidatePost returns one FieldError per violated rule, or nil.
func ValidatePost(in PostInput) []models.FieldError {
	var errs []models.FieldError

	content := strings.TrimSpace(in.Content)
	switch {
	case content == "":
		errs = append(errs, models.FieldError{Field: "content", Message: "content is required"})
	case utf8.RuneCountInString(content) > MaxPostRunes:
		errs = append(errs, models.FieldError{
			Field:   "content",
			Message: fmt.Sprintf("content must be at most %d characters", MaxPostRunes),
		})
	}

	if len(in.Media) > MaxMediaRefs {
		errs = append(errs, models.FieldError{
			Field:   "media",
			Message: fmt.Sprintf("at most %d media items are allowed", MaxMediaRefs),
		})
	}
	for i, ref := range in.Media {
		if err := validateMediaRef(ref); err != nil {
			errs = append(errs, models.FieldError{Field: fmt.Sprintf("media[%d]", i), Message: err.Error()})
		}
	}

	if in.ParentReplyID != "" && in.ParentPostID == "" {
		errs = append(errs, models.FieldError{Field: "parentReplyId", Message: "a reply anchor requires a thread"})
	}
	if in.ParentReplyID != "" && in.ParentReplyID == in.ParentPostID {
		errs = append(errs, models.FieldError{Field: "parentReplyId", Message: "a reply anchor must be a reply, not the thread"})
	}

	return errs
}

func validateMediaRef(ref string) error {
	if ref == "" || len(ref) > maxMediaRefLen {
		return fmt.Errorf("media reference must be 1-%d characters", maxMediaRefLen)
	}
	if strings.HasPrefix(ref, "/") {
		return nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("media reference must be an http(s) URL or an absolute path")
	}
	return nil
}
