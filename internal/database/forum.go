package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/goldlanka/goldmarket/internal/feed"
	"github.com/goldlanka/goldmarket/internal/model"
)

const forumPostColumns = `p.id, p.text, p.user_id, p.user_name,
	(SELECT COUNT(*) FROM forum_replies r WHERE r.post_id = p.id), p.created_at`

var forumPages = pageSpec[model.ForumPost]{
	selectFrom: "SELECT " + forumPostColumns + " FROM forum_posts p",
	createdCol: "p.created_at",
	idCol:      "p.id",
	scan:       scanForumPost,
}

func scanForumPost(row rowScanner) (model.ForumPost, error) {
	var p model.ForumPost
	var created int64
	err := row.Scan(&p.ID, &p.Text, &p.UserID, &p.UserName, &p.ReplyCount, &created)
	p.CreatedAt = fromMicro(created)
	return p, err
}

// QueryForumPosts returns one page of forum posts with their reply counts.
// The forum has no filter; a non-empty filter is ignored.
func (db *DB) QueryForumPosts(ctx context.Context, q feed.Query) (feed.Page[model.ForumPost], error) {
	return queryPage(ctx, db, forumPages, q)
}

// AllForumPosts returns every forum post, newest first.
func (db *DB) AllForumPosts(ctx context.Context) ([]model.ForumPost, error) {
	return scanAll(ctx, db, db.conn, scanForumPost,
		"SELECT "+forumPostColumns+" FROM forum_posts p ORDER BY p.created_at DESC, p.id DESC")
}

func authorName(userID, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if userID == "" {
		return model.AnonymousName
	}
	return "User"
}

// CreateForumPost stores a new post. Posts without an identity are shown
// as anonymous.
func (db *DB) CreateForumPost(ctx context.Context, p *model.ForumPost) error {
	text, err := model.ValidateText(p.Text)
	if err != nil {
		return err
	}
	p.Text = text
	if p.ID == "" {
		p.ID = model.NewID()
	}
	p.UserName = authorName(p.UserID, p.UserName)
	p.CreatedAt = stamp(p.CreatedAt)
	p.ReplyCount = 0

	_, err = db.exec(ctx, db.conn,
		"INSERT INTO forum_posts (id, text, user_id, user_name, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Text, p.UserID, p.UserName, toMicro(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert forum post: %w", err)
	}
	return nil
}

// GetForumPost returns a post by ID.
func (db *DB) GetForumPost(ctx context.Context, id string) (*model.ForumPost, error) {
	p, err := scanForumPost(db.queryRow(ctx, db.conn,
		"SELECT "+forumPostColumns+" FROM forum_posts p WHERE p.id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

const forumReplyColumns = "id, post_id, text, user_id, user_name, created_at"

func scanForumReply(row rowScanner) (model.ForumReply, error) {
	var r model.ForumReply
	var created int64
	err := row.Scan(&r.ID, &r.PostID, &r.Text, &r.UserID, &r.UserName, &created)
	r.CreatedAt = fromMicro(created)
	return r, err
}

// CreateForumReply answers an existing post.
func (db *DB) CreateForumReply(ctx context.Context, r *model.ForumReply) error {
	text, err := model.ValidateText(r.Text)
	if err != nil {
		return err
	}
	if _, err := db.GetForumPost(ctx, r.PostID); err != nil {
		return err
	}
	r.Text = text
	if r.ID == "" {
		r.ID = model.NewID()
	}
	r.UserName = authorName(r.UserID, r.UserName)
	r.CreatedAt = stamp(r.CreatedAt)

	_, err = db.exec(ctx, db.conn,
		"INSERT INTO forum_replies ("+forumReplyColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.PostID, r.Text, r.UserID, r.UserName, toMicro(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert forum reply: %w", err)
	}
	return nil
}

// ListForumReplies returns a post's replies, oldest first.
func (db *DB) ListForumReplies(ctx context.Context, postID string) ([]model.ForumReply, error) {
	return scanAll(ctx, db, db.conn, scanForumReply,
		"SELECT "+forumReplyColumns+" FROM forum_replies WHERE post_id = ? ORDER BY created_at ASC, id ASC", postID)
}
