package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"igfeed/pkg/instagram"
)

var commentCount int

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:     "account <username>",
	Short:   "Show an account profile",
	Example: `  igfeed account kevin`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		account, err := call(cmd.Context(), s, func(ctx context.Context) (*instagram.Account, error) {
			return s.client.GetAccount(ctx, args[0])
		})
		if err != nil {
			return err
		}
		return writeResult(cmd, account)
	},
}

// accountIDCmd represents the account-id command
var accountIDCmd = &cobra.Command{
	Use:   "account-id <id>",
	Short: "Show the account profile for a numeric account id",
	Long: `Resolve a numeric account id to its username and show the profile.

Resolving an id requires a logged-in session.`,
	Example: `  igfeed account-id 3 --username myaccount`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		account, err := call(cmd.Context(), s, func(ctx context.Context) (*instagram.Account, error) {
			return s.client.GetAccountByID(ctx, args[0])
		})
		if err != nil {
			return err
		}
		return writeResult(cmd, account)
	},
}

// mediaCmd represents the media command
var mediaCmd = &cobra.Command{
	Use:   "media <url|code|id>",
	Short: "Show a single post",
	Long: `Show a single post, addressed by its URL, its short code or its numeric id.`,
	Example: `  igfeed media https://www.instagram.com/p/BRZlKsijN9J/
  igfeed media BRZlKsijN9J
  igfeed media 1466366616425783113`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		ref := args[0]
		media, err := call(cmd.Context(), s, func(ctx context.Context) (*instagram.Media, error) {
			switch {
			case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
				return s.client.GetMediaByURL(ctx, ref)
			case isMediaID(ref):
				return s.client.GetMediaByID(ctx, ref)
			default:
				return s.client.GetMediaByCode(ctx, ref)
			}
		})
		if err != nil {
			return err
		}
		if err := writeResult(cmd, media); err != nil {
			return err
		}
		return archiveMedia(cmd, s, []instagram.Media{*media})
	},
}

// commentsCmd represents the comments command
var commentsCmd = &cobra.Command{
	Use:     "comments <code>",
	Short:   "List the comments of a post",
	Example: `  igfeed comments BRZlKsijN9J --count 50`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		count := s.cfg.Feed.ClampCount(commentCount)
		comments, err := call(cmd.Context(), s, func(ctx context.Context) ([]instagram.Comment, error) {
			page, _, err := s.client.GetComments(ctx, args[0], count, instagram.Cursor{})
			return page, err
		})
		if err != nil {
			return err
		}
		if comments == nil {
			comments = []instagram.Comment{}
		}
		return writeResult(cmd, comments)
	},
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search accounts, hashtags and places",
	Example: `  igfeed search golang`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		result, err := call(cmd.Context(), s, func(ctx context.Context) (*instagram.SearchResult, error) {
			return s.client.Search(ctx, args[0])
		})
		if err != nil {
			return err
		}
		return writeResult(cmd, result)
	},
}

func init() {
	addDownloadFlags(mediaCmd)
	commentsCmd.Flags().IntVarP(&commentCount, "count", "n", 0, "number of comments (default from feed.default_count)")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(accountIDCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(searchCmd)
}

// isMediaID reports whether ref looks like a numeric or composite
// "<id>_<owner>" media id rather than a short code
func isMediaID(ref string) bool {
	id, owner, composite := strings.Cut(ref, "_")
	return isDigits(id) && (!composite || isDigits(owner))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
