// Package storage writes media files and their metadata into an archive
// directory.
//
// Every post is stored under its short code: an image post as <code>.jpg, a
// video as <code>.mp4 plus its cover image, and carousel children as
// <code>_1.jpg, <code>_2.mp4 and so on. The canonical Media record of the post
// is written next to its files as <code>.json.
//
// Files are written atomically through a temporary file and rename, so an
// interrupted download never leaves a truncated asset behind. A Manager scans
// the directory on creation and skips assets that are already present.
//
// Usage:
//
//	manager, err := storage.NewManager("archive")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, asset := range storage.Assets(media) {
//	    if !manager.Has(asset.Name) {
//	        // fetch asset.URL and manager.Save(asset.Name, body)
//	    }
//	}
//	err = manager.SaveMetadata(media)
package storage
