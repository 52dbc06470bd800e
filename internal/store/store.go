// Package store is the query layer over the relational schema. Handlers
// depend on it instead of owning SQL so they stay thin and testable.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"microblog/internal/models"
	"microblog/internal/pagination"
)

var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// PostFilter narrows post queries. Zero fields mean no filtering.
type PostFilter struct {
	GroupID  int64
	AuthorID int64
}

const postColumns = `p.id, p.user_id, p.group_id, p.text, p.created_at,
	u.username, IFNULL(g.title,''), IFNULL(g.slug,'')`

const postJoins = `FROM posts p
	JOIN users u ON p.user_id = u.id
	LEFT JOIN groups g ON p.group_id = g.id`

func (f PostFilter) where() (string, []any) {
	var clause string
	var args []any
	if f.GroupID != 0 {
		clause = " WHERE p.group_id = ?"
		args = append(args, f.GroupID)
	}
	if f.AuthorID != 0 {
		if clause == "" {
			clause = " WHERE p.user_id = ?"
		} else {
			clause += " AND p.user_id = ?"
		}
		args = append(args, f.AuthorID)
	}
	return clause, args
}

func (s *Store) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	clause, args := f.where()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+clause, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// PostPage returns one reverse-chronological page of posts matching the
// filter. Requested page numbers outside the valid range clamp.
func (s *Store) PostPage(ctx context.Context, f PostFilter, requested int) (pagination.Page, error) {
	total, err := s.CountPosts(ctx, f)
	if err != nil {
		return pagination.Page{}, err
	}
	page := pagination.New(total, requested)

	clause, args := f.where()
	q := `SELECT ` + postColumns + ` ` + postJoins + clause +
		` ORDER BY p.id DESC LIMIT ? OFFSET ?`
	args = append(args, pagination.PerPage, page.Offset())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return pagination.Page{}, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return pagination.Page{}, err
		}
		page.Posts = append(page.Posts, p)
	}
	return page, rows.Err()
}

func (s *Store) PostByID(ctx context.Context, id int64) (models.Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` `+postJoins+` WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrNotFound
	}
	return p, err
}

// CreatePost persists a new post for the given author. The author is
// fixed at creation and never changed afterwards.
func (s *Store) CreatePost(ctx context.Context, authorID int64, text string, groupID *int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(user_id,group_id,text,created_at) VALUES(?,?,?,?)`,
		authorID, nullID(groupID), text, time.Now())
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	return res.LastInsertId()
}

// UpdatePost rewrites the text and group of an existing post. Identifier,
// author and creation time are left untouched.
func (s *Store) UpdatePost(ctx context.Context, id int64, text string, groupID *int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET text = ?, group_id = ? WHERE id = ?`,
		text, nullID(groupID), id)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Groups(ctx context.Context) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, slug, description FROM groups ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Store) GroupBySlug(ctx context.Context, slug string) (models.Group, error) {
	return s.group(ctx, `slug = ?`, slug)
}

func (s *Store) GroupByID(ctx context.Context, id int64) (models.Group, error) {
	return s.group(ctx, `id = ?`, id)
}

func (s *Store) group(ctx context.Context, cond string, arg any) (models.Group, error) {
	var g models.Group
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM groups WHERE `+cond, arg).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrNotFound
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(email,username,password_hash,created_at) VALUES(?,?,?,?)`,
		email, username, passwordHash, time.Now())
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	return s.user(ctx, `id = ?`, id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.user(ctx, `username = ?`, username)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.user(ctx, `email = ?`, email)
}

func (s *Store) user(ctx context.Context, cond string, arg any) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE `+cond, arg).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	var gid sql.NullInt64
	err := row.Scan(&p.ID, &p.UserID, &gid, &p.Text, &p.CreatedAt,
		&p.Author, &p.GroupTitle, &p.GroupSlug)
	if err != nil {
		return models.Post{}, err
	}
	if gid.Valid {
		p.GroupID = &gid.Int64
	}
	return p, nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
