package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"igfeed/pkg/checkpoint"
	"igfeed/pkg/instagram"
)

// Feed kinds, also used as checkpoint feed names
const (
	feedUser     = "user"
	feedTag      = "tag"
	feedLocation = "location"
)

var (
	feedCount  int
	feedResume bool
)

// feedResult is what the feed command prints
type feedResult struct {
	Feed    string            `json:"feed" yaml:"feed"`
	Target  string            `json:"target" yaml:"target"`
	Items   []instagram.Media `json:"items" yaml:"items"`
	Next    instagram.Cursor  `json:"next" yaml:"next"`
	Fetched int               `json:"fetched" yaml:"fetched"`
}

type feedPage struct {
	items []instagram.Media
	next  instagram.Cursor
}

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed user|tag|location <target>",
	Short: "List the recent posts of an account, hashtag or place",
	Long: `List the most recent posts of an account, a hashtag or a location id.

Every run saves the cursor where it stopped. With --resume the next run
continues from there instead of starting at the newest post.`,
	Example: `  # Ten newest posts of an account
  igfeed feed user kevin --count 10

  # Continue a hashtag feed where the last run stopped
  igfeed feed tag golang --resume`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{feedUser, feedTag, feedLocation},
	RunE:      runFeed,
}

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:     "top tag|location <target>",
	Short:   "List the top posts of a hashtag or place",
	Example: `  igfeed top tag golang`,
	Args:    cobra.ExactArgs(2),
	RunE:    runTop,
}

func init() {
	feedCmd.Flags().IntVarP(&feedCount, "count", "n", 0, "number of posts (default from feed.default_count)")
	feedCmd.Flags().BoolVarP(&feedResume, "resume", "r", false, "continue from the saved cursor")
	addDownloadFlags(feedCmd)
	addDownloadFlags(topCmd)

	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(topCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	kind, target := args[0], args[1]
	fetch, err := feedFetcher(kind)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	checkpoints, err := checkpoint.NewManager(s.cfg.Checkpoint.Directory, s.log)
	if err != nil {
		return err
	}

	var start instagram.Cursor
	if feedResume {
		cp, err := checkpoints.Load(kind, target)
		if err != nil {
			return err
		}
		if cp != nil {
			if cp.Exhausted() {
				printer.Warning("The %s feed of %s has no more posts (%d fetched)", kind, target, cp.Fetched)
				return writeResult(cmd, feedResult{Feed: kind, Target: target, Items: []instagram.Media{}, Next: cp.Cursor, Fetched: cp.Fetched})
			}
			start = cp.Cursor
			printer.Info("Resuming after", fmt.Sprintf("%d posts", cp.Fetched))
		}
	} else if err := checkpoints.Delete(kind, target); err != nil {
		return err
	}

	count := s.cfg.Feed.ClampCount(feedCount)
	page, err := call(cmd.Context(), s, func(ctx context.Context) (feedPage, error) {
		items, next, err := fetch(s.client, ctx, target, count, start)
		return feedPage{items: items, next: next}, err
	})
	if err != nil {
		return err
	}

	cp, err := checkpoints.Record(kind, target, page.next, len(page.items))
	if err != nil {
		return err
	}

	items := page.items
	if items == nil {
		items = []instagram.Media{}
	}
	if err := writeResult(cmd, feedResult{Feed: kind, Target: target, Items: items, Next: page.next, Fetched: cp.Fetched}); err != nil {
		return err
	}
	return archiveMedia(cmd, s, items)
}

type fetchFunc func(c *instagram.Client, ctx context.Context, target string, count int, cursor instagram.Cursor) ([]instagram.Media, instagram.Cursor, error)

func feedFetcher(kind string) (fetchFunc, error) {
	switch kind {
	case feedUser:
		return (*instagram.Client).AccountMedia, nil
	case feedTag:
		return (*instagram.Client).TagMedia, nil
	case feedLocation:
		return (*instagram.Client).LocationMedia, nil
	default:
		return nil, fmt.Errorf("unknown feed %q (want user, tag or location)", kind)
	}
}

func runTop(cmd *cobra.Command, args []string) error {
	kind, target := args[0], args[1]
	var fetch func(*instagram.Client, context.Context, string) ([]instagram.Media, error)
	switch kind {
	case feedTag:
		fetch = (*instagram.Client).TopTagMedia
	case feedLocation:
		fetch = (*instagram.Client).LocationTopMedia
	default:
		return fmt.Errorf("unknown top feed %q (want tag or location)", kind)
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	items, err := call(cmd.Context(), s, func(ctx context.Context) ([]instagram.Media, error) {
		return fetch(s.client, ctx, target)
	})
	if err != nil {
		return err
	}
	if items == nil {
		items = []instagram.Media{}
	}
	if err := writeResult(cmd, items); err != nil {
		return err
	}
	return archiveMedia(cmd, s, items)
}
