package models

import "time"

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Group struct {
	ID          int64
	Title       string
	Slug        string
	Description string
}

type Post struct {
	ID        int64
	UserID    int64
	Text      string
	GroupID   *int64
	CreatedAt time.Time

	// Joined fields, populated by the store.
	Author     string
	GroupTitle string
	GroupSlug  string
}

// HasGroup reports whether the post is assigned to a group.
func (p Post) HasGroup() bool { return p.GroupID != nil }
