package forum

import "context"

// CategoryRequest carries the fields the engine supplies when creating a
// category. Cosmetic fields are pre-chosen by the caller.
type CategoryRequest struct {
	Name        string
	Description string
	Order       int
	Disabled    bool
	ParentID    int64
	Link        string
	Icon        string
	BgColor     string
	Color       string
}

type UserRequest struct {
	Username string
	Email    string
	// Password may be empty, in which case the account is created without
	// one.
	Password string
}

type TopicRequest struct {
	UID     int64
	Title   string
	Content string
	CID     int64
	Thumb   string
}

// TopicResult is the forum's authoritative view of a freshly posted topic and
// its generated first post.
type TopicResult struct {
	Topic Object
	Post  Object
}

type PostRequest struct {
	UID       int64
	TID       int64
	Content   string
	Timestamp int64
	// ToPID is an optional reply target. It is accepted as-is and never
	// validated before creation.
	ToPID string
}

type CategoryService interface {
	Create(ctx context.Context, req CategoryRequest) (Object, error)
	Purge(ctx context.Context, cid int64) error
}

type UserService interface {
	Create(ctx context.Context, req UserRequest) (int64, error)
	SetFields(ctx context.Context, uid int64, fields map[string]any) error
	Delete(ctx context.Context, uid int64) error
}

type TopicService interface {
	// Post creates a topic together with its first post.
	Post(ctx context.Context, req TopicRequest) (TopicResult, error)
}

type PostService interface {
	Create(ctx context.Context, req PostRequest) (Object, error)
	SetFields(ctx context.Context, pid int64, fields map[string]any) error
}

type GroupService interface {
	Join(ctx context.Context, group string, uid int64) error
}

// MetaService reloads the forum's cached view of its own configuration after
// the engine swaps the config object underneath it.
type MetaService interface {
	ReloadConfig(ctx context.Context) error
}

// Services bundles every forum capability the engine consumes.
type Services struct {
	Categories CategoryService
	Users      UserService
	Topics     TopicService
	Posts      PostService
	Groups     GroupService
	Meta       MetaService
}
