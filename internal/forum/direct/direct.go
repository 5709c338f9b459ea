// Package direct is a minimal reference backend implementing the forum
// service contracts straight on top of a Store. It exists so the importer can
// run against a bare database (tests, dry runs, freshly provisioned forums);
// it is not a full forum engine.
package direct

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/iota-uz/forum-importer/internal/forum"
	"github.com/iota-uz/forum-importer/pkg/slugify"
)

var (
	ErrUsernameTaken  = errors.New("direct: username already taken")
	ErrTopicLocked    = errors.New("direct: topic is locked")
	ErrGuestForbidden = errors.New("direct: guest posting not allowed")
)

type Backend struct {
	store forum.Store

	mu     sync.RWMutex
	config map[string]string

	// Now returns the current time in epoch milliseconds. Overridable in
	// tests.
	Now func() int64
}

func New(store forum.Store) *Backend {
	return &Backend{store: store}
}

// Services exposes the backend through the consumer-facing contracts.
func (b *Backend) Services() forum.Services {
	return forum.Services{
		Categories: categoryAPI{b},
		Users:      userAPI{b},
		Topics:     topicAPI{b},
		Posts:      postAPI{b},
		Groups:     groupAPI{b},
		Meta:       metaAPI{b},
	}
}

type categoryAPI struct{ b *Backend }

func (a categoryAPI) Create(ctx context.Context, req forum.CategoryRequest) (forum.Object, error) {
	return a.b.createCategory(ctx, req)
}

func (a categoryAPI) Purge(ctx context.Context, cid int64) error {
	return a.b.purgeCategory(ctx, cid)
}

type userAPI struct{ b *Backend }

func (a userAPI) Create(ctx context.Context, req forum.UserRequest) (int64, error) {
	return a.b.createUser(ctx, req)
}

func (a userAPI) SetFields(ctx context.Context, uid int64, fields map[string]any) error {
	return a.b.store.SetObject(ctx, "user:"+itoa(uid), fields)
}

func (a userAPI) Delete(ctx context.Context, uid int64) error {
	return a.b.deleteUser(ctx, uid)
}

type topicAPI struct{ b *Backend }

func (a topicAPI) Post(ctx context.Context, req forum.TopicRequest) (forum.TopicResult, error) {
	return a.b.postTopic(ctx, req)
}

type postAPI struct{ b *Backend }

func (a postAPI) Create(ctx context.Context, req forum.PostRequest) (forum.Object, error) {
	return a.b.createPost(ctx, req)
}

func (a postAPI) SetFields(ctx context.Context, pid int64, fields map[string]any) error {
	return a.b.store.SetObject(ctx, "post:"+itoa(pid), fields)
}

type groupAPI struct{ b *Backend }

func (a groupAPI) Join(ctx context.Context, group string, uid int64) error {
	return a.b.store.SortedSetAdd(ctx, "group:"+group+":members", float64(a.b.now()), itoa(uid))
}

type metaAPI struct{ b *Backend }

func (a metaAPI) ReloadConfig(ctx context.Context) error {
	return a.b.ReloadConfig(ctx)
}

func (b *Backend) ReloadConfig(ctx context.Context) error {
	cfg, err := b.store.GetObject(ctx, "config")
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.config = cfg
	b.mu.Unlock()
	return nil
}

func (b *Backend) configInt(ctx context.Context, field string, fallback int64) int64 {
	b.mu.RLock()
	cfg := b.config
	b.mu.RUnlock()
	if cfg == nil {
		if err := b.ReloadConfig(ctx); err != nil {
			return fallback
		}
		b.mu.RLock()
		cfg = b.config
		b.mu.RUnlock()
	}
	raw, ok := cfg[field]
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (b *Backend) now() int64 {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UnixMilli()
}

func (b *Backend) createCategory(ctx context.Context, req forum.CategoryRequest) (forum.Object, error) {
	if req.Name == "" {
		return nil, errors.New("direct: category name required")
	}
	cid, err := b.store.IncrObjectField(ctx, "global", "nextCid")
	if err != nil {
		return nil, err
	}
	if _, err := b.store.IncrObjectField(ctx, "global", "categoryCount"); err != nil {
		return nil, err
	}
	slug := fmt.Sprintf("%d/%s", cid, slugify.Slugify(req.Name))
	category := forum.Object{
		"cid":         cid,
		"name":        req.Name,
		"slug":        slug,
		"description": req.Description,
		"order":       req.Order,
		"disabled":    boolToInt(req.Disabled),
		"parentCid":   req.ParentID,
		"link":        req.Link,
		"icon":        req.Icon,
		"bgColor":     req.BgColor,
		"color":       req.Color,
	}
	if err := b.store.SetObject(ctx, "category:"+itoa(cid), map[string]any(category)); err != nil {
		return nil, err
	}
	if err := b.store.SortedSetAdd(ctx, "categories:cid", float64(req.Order), itoa(cid)); err != nil {
		return nil, err
	}
	return category, nil
}

func (b *Backend) purgeCategory(ctx context.Context, cid int64) error {
	tids, err := b.store.SortedSetRange(ctx, fmt.Sprintf("categories:%d:tid", cid), 0, -1)
	if err != nil {
		return err
	}
	for _, tid := range tids {
		pids, err := b.store.SortedSetRange(ctx, "tid:"+tid+":posts", 0, -1)
		if err != nil {
			return err
		}
		for _, pid := range pids {
			if err := b.store.DeleteKey(ctx, "post:"+pid); err != nil {
				return err
			}
		}
		if err := b.store.DeleteKey(ctx, "tid:"+tid+":posts"); err != nil {
			return err
		}
		if err := b.store.DeleteKey(ctx, "topic:"+tid); err != nil {
			return err
		}
	}
	if err := b.store.DeleteKey(ctx, fmt.Sprintf("categories:%d:tid", cid)); err != nil {
		return err
	}
	if err := b.store.DeleteKey(ctx, "category:"+itoa(cid)); err != nil {
		return err
	}
	return b.store.SortedSetRemove(ctx, "categories:cid", itoa(cid))
}

func (b *Backend) createUser(ctx context.Context, req forum.UserRequest) (int64, error) {
	maxLen := b.configInt(ctx, "maximumUsernameLength", 16)
	if req.Username == "" || int64(len(req.Username)) > maxLen {
		return 0, errors.Errorf("direct: invalid username %q", req.Username)
	}
	if req.Password != "" {
		minLen := b.configInt(ctx, "minimumPasswordLength", 6)
		if int64(len(req.Password)) < minLen {
			return 0, errors.New("direct: password too short")
		}
	}
	existing, err := b.store.GetObjectField(ctx, "username:uid", req.Username)
	if err != nil {
		return 0, err
	}
	if existing != "" {
		return 0, ErrUsernameTaken
	}
	uid, err := b.store.IncrObjectField(ctx, "global", "nextUid")
	if err != nil {
		return 0, err
	}
	if _, err := b.store.IncrObjectField(ctx, "global", "userCount"); err != nil {
		return 0, err
	}
	now := b.now()
	user := map[string]any{
		"uid":      uid,
		"username": req.Username,
		"userslug": slugify.Slugify(req.Username),
		"email":    req.Email,
		"joindate": now,
		"status":   "online",
	}
	if err := b.store.SetObject(ctx, "user:"+itoa(uid), user); err != nil {
		return 0, err
	}
	if err := b.store.SetObjectField(ctx, "username:uid", req.Username, uid); err != nil {
		return 0, err
	}
	if err := b.store.SortedSetAdd(ctx, "users:joindate", float64(now), itoa(uid)); err != nil {
		return 0, err
	}
	return uid, nil
}

func (b *Backend) deleteUser(ctx context.Context, uid int64) error {
	username, err := b.store.GetObjectField(ctx, "user:"+itoa(uid), "username")
	if err != nil {
		return err
	}
	if username != "" {
		if err := b.store.SetObjectField(ctx, "username:uid", username, ""); err != nil {
			return err
		}
	}
	if err := b.store.DeleteKey(ctx, "user:"+itoa(uid)); err != nil {
		return err
	}
	return b.store.SortedSetRemove(ctx, "users:joindate", itoa(uid))
}

func (b *Backend) postTopic(ctx context.Context, req forum.TopicRequest) (forum.TopicResult, error) {
	if req.UID == 0 && b.configInt(ctx, "allowGuestPosting", 0) != 1 {
		return forum.TopicResult{}, ErrGuestForbidden
	}
	cid, err := b.store.GetObjectField(ctx, "category:"+itoa(req.CID), "cid")
	if err != nil {
		return forum.TopicResult{}, err
	}
	if cid == "" {
		return forum.TopicResult{}, errors.Errorf("direct: no such category %d", req.CID)
	}
	titleLen := int64(len(req.Title))
	if titleLen < b.configInt(ctx, "minimumTitleLength", 3) || titleLen > b.configInt(ctx, "maximumTitleLength", 255) {
		return forum.TopicResult{}, errors.Errorf("direct: title length %d out of bounds", titleLen)
	}
	if int64(len(req.Content)) < b.configInt(ctx, "minimumPostLength", 8) {
		return forum.TopicResult{}, errors.New("direct: content too short")
	}
	tid, err := b.store.IncrObjectField(ctx, "global", "nextTid")
	if err != nil {
		return forum.TopicResult{}, err
	}
	if _, err := b.store.IncrObjectField(ctx, "global", "topicCount"); err != nil {
		return forum.TopicResult{}, err
	}
	now := b.now()
	topic := forum.Object{
		"tid":          tid,
		"uid":          req.UID,
		"cid":          req.CID,
		"title":        req.Title,
		"slug":         fmt.Sprintf("%d/%s", tid, slugify.Slugify(req.Title)),
		"thumb":        req.Thumb,
		"timestamp":    now,
		"lastposttime": now,
		"postcount":    0,
		"viewcount":    0,
		"locked":       0,
		"deleted":      0,
		"pinned":       0,
	}
	if err := b.store.SetObject(ctx, "topic:"+itoa(tid), map[string]any(topic)); err != nil {
		return forum.TopicResult{}, err
	}
	post, err := b.createPost(ctx, forum.PostRequest{
		UID:       req.UID,
		TID:       tid,
		Content:   req.Content,
		Timestamp: now,
	})
	if err != nil {
		return forum.TopicResult{}, err
	}
	return forum.TopicResult{Topic: topic, Post: post}, nil
}

func (b *Backend) createPost(ctx context.Context, req forum.PostRequest) (forum.Object, error) {
	if req.UID == 0 && b.configInt(ctx, "allowGuestPosting", 0) != 1 {
		return nil, ErrGuestForbidden
	}
	tid, err := b.store.GetObjectField(ctx, "topic:"+itoa(req.TID), "tid")
	if err != nil {
		return nil, err
	}
	if tid == "" {
		return nil, errors.Errorf("direct: no such topic %d", req.TID)
	}
	locked, err := b.store.GetObjectField(ctx, "topic:"+itoa(req.TID), "locked")
	if err != nil {
		return nil, err
	}
	if locked == "1" {
		return nil, ErrTopicLocked
	}
	if int64(len(req.Content)) < b.configInt(ctx, "minimumPostLength", 8) {
		return nil, errors.New("direct: content too short")
	}
	pid, err := b.store.IncrObjectField(ctx, "global", "nextPid")
	if err != nil {
		return nil, err
	}
	if _, err := b.store.IncrObjectField(ctx, "global", "postCount"); err != nil {
		return nil, err
	}
	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = b.now()
	}
	post := forum.Object{
		"pid":       pid,
		"uid":       req.UID,
		"tid":       req.TID,
		"content":   req.Content,
		"timestamp": timestamp,
	}
	if req.ToPID != "" {
		post["toPid"] = req.ToPID
	}
	if err := b.store.SetObject(ctx, "post:"+itoa(pid), map[string]any(post)); err != nil {
		return nil, err
	}
	if err := b.store.SortedSetAdd(ctx, "tid:"+itoa(req.TID)+":posts", float64(timestamp), itoa(pid)); err != nil {
		return nil, err
	}
	if _, err := b.store.IncrObjectField(ctx, "topic:"+itoa(req.TID), "postcount"); err != nil {
		return nil, err
	}
	if err := b.store.SetObjectField(ctx, "topic:"+itoa(req.TID), "lastposttime", timestamp); err != nil {
		return nil, err
	}
	return post, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
