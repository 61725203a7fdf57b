package config

import "time"

const (
	// MaxNameLength caps entry names (folders and files alike).
	MaxNameLength = 255

	// MaxUploadBytes caps a single multipart upload.
	MaxUploadBytes = 1 << 30 // 1 GiB

	// DefaultTrashRetention is how long trashed entries survive before
	// the reaper permanently deletes them.
	DefaultTrashRetention = 30 * 24 * time.Hour

	// DefaultReaperInterval is how often the reaper scans for expired
	// trash.
	DefaultReaperInterval = 24 * time.Hour
)
