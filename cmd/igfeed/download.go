package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"igfeed/internal/downloader"
	"igfeed/pkg/instagram"
	"igfeed/pkg/storage"
)

var (
	downloadMedia bool
	downloadDir   string
)

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&downloadMedia, "download", "d", false, "save the media files and metadata of every post")
	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "archive directory (default from download.directory)")
}

// archiveMedia saves the files of items when --download is set
func archiveMedia(cmd *cobra.Command, s *session, items []instagram.Media) error {
	if !downloadMedia && downloadDir == "" {
		return nil
	}
	dir := downloadDir
	if dir == "" {
		dir = s.cfg.Download.Directory
	}
	if dir == "" {
		return errors.New("no download directory: pass --download-dir or set download.directory")
	}

	manager, err := storage.NewManager(dir)
	if err != nil {
		return err
	}

	var jobs []downloader.Job
	for _, m := range items {
		if err := manager.SaveMetadata(m); err != nil {
			return err
		}
		for _, asset := range storage.Assets(m) {
			jobs = append(jobs, downloader.Job{ShortCode: m.ShortCode, Asset: asset})
		}
	}

	pool := downloader.NewWorkerPool(cmd.Context(), s.cfg.Download.Workers, s.client, manager, s.retry, s.log)
	results := pool.Run(jobs)

	var stored, skipped, failed, bytes int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			skipped++
		default:
			stored++
			bytes += r.Size
		}
	}

	printer.Panel("Download", map[string]string{
		"Directory": manager.Dir(),
		"Stored":    fmt.Sprintf("%d (%d bytes)", stored, bytes),
		"Skipped":   fmt.Sprintf("%d", skipped),
		"Failed":    fmt.Sprintf("%d", failed),
	})

	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to download", failed, len(jobs))
	}
	return nil
}
