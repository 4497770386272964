// Package activity keeps an append-only log of admin mutations (saves,
// deletes, publishes, category changes) in SQLite.
package activity

import "time"

// Action names a kind of admin mutation.
type Action string

const (
	PostSave            Action = "post.save"
	PostDelete          Action = "post.delete"
	DraftSave           Action = "draft.save"
	DraftDelete         Action = "draft.delete"
	DraftPublish        Action = "draft.publish"
	CategoryCreate      Action = "category.create"
	CategoryUpdate      Action = "category.update"
	CategoryDelete      Action = "category.delete"
	CategoryForceDelete Action = "category.force_delete"
)

// Entry is one logged mutation.
type Entry struct {
	ID     int64     `json:"id"`
	Time   time.Time `json:"time"`
	Action Action    `json:"action"`
	Target string    `json:"target"`           // slug or category id
	Locale string    `json:"locale,omitempty"` // empty for drafts and categories
	Detail string    `json:"detail,omitempty"`
}
