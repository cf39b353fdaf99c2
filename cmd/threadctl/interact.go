package main

import (
	"fmt"
	"strings"

	"threadline/internal/client"
	"threadline/internal/clilog"

	"github.com/spf13/cobra"
)

var likeCmd = &cobra.Command{
	Use:   "like <postId>",
	Short: "Toggle a like on a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)

		current, err := api.LikeStatus(ctx, args[0])
		if err != nil {
			return err
		}
		toggle := client.NewLikeToggle(api, args[0], current.Liked, current.LikeCount)
		if err := toggle.Toggle(ctx); err != nil {
			log := clilog.WithCommand("like")
			log.Warn().Err(err).Msg("like rolled back")
			return err
		}
		state := toggle.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "liked=%t likes=%d\n", state.Liked, state.LikeCount)
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <userId>",
	Short: "Follow a user, or unfollow with --undo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		api, err := apiClient(cmd)
		if err != nil {
			return err
		}

		toggle := client.NewFollowToggle(api, args[0], undo)
		if err := toggle.Toggle(commandContext(cmd)); err != nil {
			log := clilog.WithCommand("follow")
			log.Warn().Err(err).Msg("follow rolled back")
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "following=%t\n", toggle.Following())
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print a page of the global or following feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		following, _ := cmd.Flags().GetBool("following")
		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		api, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		params := client.PageParams{Cursor: cursor, Limit: limit}

		var page *client.FeedPage
		if following {
			page, err = api.FollowingFeed(ctx, params)
		} else {
			page, err = api.Feed(ctx, params)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if following && page.FollowingCount != nil && *page.FollowingCount == 0 {
			fmt.Fprintln(out, "You are not following anyone yet.")
			return nil
		}
		for _, th := range page.Threads {
			author := th.AuthorID
			if th.Author != nil {
				author = "@" + th.Author.Username
			}
			liked := " "
			if th.Liked {
				liked = "♥"
			}
			fmt.Fprintf(out, "%s %s %s  [%d likes, %d replies]\n    %s\n",
				liked, th.ID, author, th.LikeCount, th.ReplyCount, oneLine(th.Content))
		}
		if page.HasMore {
			fmt.Fprintf(out, "next: --cursor %s\n", page.NextCursor)
		}
		return nil
	},
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 100 {
		return string(r[:99]) + "…"
	}
	return s
}

func init() {
	followCmd.Flags().Bool("undo", false, "Unfollow instead")

	feedCmd.Flags().Bool("following", false, "Show threads from followed accounts only")
	feedCmd.Flags().Int("limit", 20, "Threads per page")
	feedCmd.Flags().String("cursor", "", "Cursor from a previous page")
}
