// Package checkpoint saves the pagination cursor of a feed so a later run can
// resume where the previous one stopped.
//
// One JSON file per feed and target is kept in the configured directory.
// Files are written atomically through a temporary file and carry a version
// for future compatibility.
package checkpoint
