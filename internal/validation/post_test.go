package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePost(t *testing.T) {
	tests := []struct {
		name   string
		in     PostInput
		fields []string
	}{
		{name: "valid thread", in: PostInput{Content: "hello"}},
		{name: "valid reply with media", in: PostInput{
			Content:      "nice",
			Media:        []string{"https://cdn.example.com/a.png", "/uploads/b.webp"},
			ParentPostID: "t1",
		}},
		{name: "blank content", in: PostInput{Content: "   "}, fields: []string{"content"}},
		{name: "too long", in: PostInput{Content: strings.Repeat("é", MaxPostRunes+1)}, fields: []string{"content"}},
		{name: "exactly max runes", in: PostInput{Content: strings.Repeat("é", MaxPostRunes)}},
		{name: "too much media", in: PostInput{Content: "x", Media: []string{"/a", "/b", "/c", "/d", "/e"}}, fields: []string{"media"}},
		{name: "bad media ref", in: PostInput{Content: "x", Media: []string{"ftp://host/file"}}, fields: []string{"media[0]"}},
		{name: "anchor without thread", in: PostInput{Content: "x", ParentReplyID: "r1"}, fields: []string{"parentReplyId"}},
		{name: "anchor is the thread", in: PostInput{Content: "x", ParentPostID: "t1", ParentReplyID: "t1"}, fields: []string{"parentReplyId"}},
		{name: "several problems", in: PostInput{Media: []string{""}}, fields: []string{"content", "media[0]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePost(tt.in)
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
