package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EntryType discriminates folder and file entries.
type EntryType string

const (
	EntryTypeFolder EntryType = "folder"
	EntryTypeFile   EntryType = "file"
)

// Entry is a node in the hierarchy, representing either a folder or a
// file. The logical path is never stored; it is derived by walking the
// parent chain, so ancestor renames cannot leave descendants stale.
type Entry struct {
	ID         bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name       string         `bson:"name" json:"name"`
	Type       EntryType      `bson:"type" json:"type"`
	ParentID   *bson.ObjectID `bson:"parentId" json:"parent_id"` // nil = forest root
	Size       int64          `bson:"size,omitempty" json:"size,omitempty"`
	Extension  string         `bson:"extension,omitempty" json:"extension,omitempty"`
	IsTrash    bool           `bson:"isTrash" json:"is_trash"`
	ExpiryTime *time.Time     `bson:"expiryTime,omitempty" json:"expiry_time,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt" json:"created_at"`
	UpdatedAt  time.Time      `bson:"updatedAt" json:"updated_at"`

	// Path is the computed display path. Populated on the way out of the
	// service layer, never persisted.
	Path string `bson:"-" json:"path,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (e *Entry) IsFolder() bool { return e.Type == EntryTypeFolder }

// IsFile reports whether the entry is a file.
func (e *Entry) IsFile() bool { return e.Type == EntryTypeFile }
