package client

import "threadline/internal/models"

// ReplyGroup is a top-level reply with the replies anchored to it.
type ReplyGroup struct {
	Reply    *models.PostView
	Children []*models.PostView
}

// GroupReplies nests a page of replies under the replies they answer,
// keeping page order. A reply whose anchor is not on the page is shown at
// the top level.
func GroupReplies(replies []*models.PostView) []ReplyGroup {
	index := make(map[string]int, len(replies))
	groups := make([]ReplyGroup, 0, len(replies))

	for _, r := range replies {
		if r.ParentReplyID != "" {
			if i, ok := index[r.ParentReplyID]; ok {
				groups[i].Children = append(groups[i].Children, r)
				index[r.ID] = i
				continue
			}
		}
		index[r.ID] = len(groups)
		groups = append(groups, ReplyGroup{Reply: r})
	}
	return groups
}
