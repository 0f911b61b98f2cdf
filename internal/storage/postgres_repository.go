package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/models"
)

type postgresRepository struct {
	pool         *pgxpool.Pool
	cfg          PostgresConfig
	queryTimeout time.Duration
}

// NewPostgresRepository opens a Postgres-backed repository. Call EnsureSchema
// (or apply migrations externally) before serving traffic.
func NewPostgresRepository(dsn string, opts ...Option) (*PostgresRepository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &PostgresRepository{postgresRepository{
		pool:         pool,
		cfg:          cfg,
		queryTimeout: cfg.AcquireTimeout,
	}}, nil
}

// PostgresRepository is the pgx-backed Repository implementation.
type PostgresRepository struct {
	postgresRepository
}

var _ Repository = (*PostgresRepository)(nil)

func (r *postgresRepository) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.queryTimeout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation reports a reference to a row that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		cover_image_url TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		refresh_token TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL,
		thumbnail_url TEXT NOT NULL DEFAULT '',
		duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		views BIGINT NOT NULL DEFAULT 0,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id UUID PRIMARY KEY,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tweets (
		id UUID PRIMARY KEY,
		author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_videos (
		playlist_id UUID NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		video_id UUID NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		PRIMARY KEY (playlist_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		target TEXT NOT NULL,
		target_id UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, target, target_id)
	)`,
	`CREATE INDEX IF NOT EXISTS likes_target_idx ON likes (target, target_id)`,
	`CREATE INDEX IF NOT EXISTS comments_video_idx ON comments (video_id)`,
	`CREATE INDEX IF NOT EXISTS videos_owner_idx ON videos (owner_id)`,
}

// EnsureSchema creates the tables the repository needs when they do not
// already exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close() {
	r.pool.Close()
}

const userColumns = "id, username, email, full_name, avatar_url, cover_image_url, password_hash, refresh_token, created_at, updated_at"

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.PasswordHash,
		&user.RefreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// User operations

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		return models.User{}, errors.New("fullName is required")
	}
	if len(params.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}

	hashed, err := auth.HashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     strings.TrimSpace(params.AvatarURL),
		CoverImageURL: strings.TrimSpace(params.CoverImageURL),
		PasswordHash:  hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, full_name, avatar_url, cover_image_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Username, user.Email, user.FullName, user.AvatarURL, user.CoverImageURL, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("username or email: %w", ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) FindUserByIdentifier(identifier string) (models.User, bool) {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if normalized == "" {
		return models.User{}, false
	}
	ctx, cancel := r.opCtx()
	defer cancel()
	user, err := scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1 OR email = $1", normalized))
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) ListUsers() []models.User {
	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil
		}
		users = append(users, user)
	}
	return users
}

func (r *postgresRepository) UpdateUser(id string, update UserUpdate) (models.User, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	user, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return models.User{}, errors.New("email cannot be empty")
		}
		user.Email = email
	}
	if update.FullName != nil {
		fullName := strings.TrimSpace(*update.FullName)
		if fullName == "" {
			return models.User{}, errors.New("fullName cannot be empty")
		}
		user.FullName = fullName
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.CoverImageURL != nil {
		user.CoverImageURL = strings.TrimSpace(*update.CoverImageURL)
	}
	user.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx, `
		UPDATE users SET email = $2, full_name = $3, avatar_url = $4, cover_image_url = $5, updated_at = $6
		WHERE id = $1`,
		id, user.Email, user.FullName, user.AvatarURL, user.CoverImageURL, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s: %w", user.Email, ErrConflict)
		}
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) SetUserPasswordHash(id, hash string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1",
		id, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) SetUserRefreshToken(id string, token *string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET refresh_token = $2, updated_at = $3 WHERE id = $1",
		id, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) DeleteUser(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// Video operations

const videoColumns = "id, owner_id, title, description, video_url, thumbnail_url, duration, views, published, created_at, updated_at"

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID,
		&video.OwnerID,
		&video.Title,
		&video.Description,
		&video.VideoURL,
		&video.ThumbnailURL,
		&video.Duration,
		&video.Views,
		&video.Published,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	return video, err
}

func (r *postgresRepository) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	videoURL := strings.TrimSpace(params.VideoURL)
	if videoURL == "" {
		return models.Video{}, errors.New("videoUrl is required")
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      params.OwnerID,
		Title:        title,
		Description:  strings.TrimSpace(params.Description),
		VideoURL:     videoURL,
		ThumbnailURL: strings.TrimSpace(params.ThumbnailURL),
		Duration:     params.Duration,
		Published:    params.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO videos (id, owner_id, title, description, video_url, thumbnail_url, duration, views, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)`,
		video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.ThumbnailURL, video.Duration, video.Published, video.CreatedAt, video.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
		}
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) GetVideo(id string) (models.Video, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if err != nil {
		return models.Video{}, false
	}
	return video, true
}

func (r *postgresRepository) ListVideos(ownerID string, includeUnpublished bool) []models.Video {
	query := "SELECT " + videoColumns + " FROM videos WHERE ($1 = '' OR owner_id::text = $1)"
	if !includeUnpublished {
		query += " AND published"
	}
	query += " ORDER BY created_at DESC"

	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil
		}
		videos = append(videos, video)
	}
	return videos
}

func (r *postgresRepository) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	video, err := scanVideo(r.pool.QueryRow(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Video{}, fmt.Errorf("load video: %w", err)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, errors.New("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		video.ThumbnailURL = strings.TrimSpace(*update.ThumbnailURL)
	}
	if update.Published != nil {
		video.Published = *update.Published
	}
	video.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx, `
		UPDATE videos SET title = $2, description = $3, thumbnail_url = $4, published = $5, updated_at = $6
		WHERE id = $1`,
		id, video.Title, video.Description, video.ThumbnailURL, video.Published, video.UpdatedAt,
	)
	if err != nil {
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

func (r *postgresRepository) DeleteVideo(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM videos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *postgresRepository) IncrementVideoViews(id string) (models.Video, error) {
	ctx, cancel := r.opCtx()
	defer cancel()
	video, err := scanVideo(r.pool.QueryRow(ctx,
		"UPDATE videos SET views = views + 1 WHERE id = $1 RETURNING "+videoColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Video{}, fmt.Errorf("increment views: %w", err)
	}
	return video, nil
}

// Comment operations

const commentColumns = "id, video_id, author_id, content, created_at, updated_at"

func scanComment(row pgx.Row) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(
		&comment.ID,
		&comment.VideoID,
		&comment.AuthorID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	return comment, err
}

func (r *postgresRepository) CreateComment(videoID, authorID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}
	if len(content) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("content exceeds %d characters", MaxCommentLength)
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, video_id, author_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		comment.ID, comment.VideoID, comment.AuthorID, comment.Content, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Comment{}, fmt.Errorf("video %s or user %s: %w", videoID, authorID, ErrNotFound)
		}
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (r *postgresRepository) GetComment(id string) (models.Comment, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	comment, err := scanComment(r.pool.QueryRow(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = $1", id))
	if err != nil {
		return models.Comment{}, false
	}
	return comment, true
}

func (r *postgresRepository) ListComments(videoID string, limit int) ([]models.Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments WHERE video_id = $1 ORDER BY created_at DESC"
	args := []interface{}{videoID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *postgresRepository) DeleteComment(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	return nil
}

// Tweet operations

const tweetColumns = "id, author_id, content, created_at, updated_at"

func scanTweet(row pgx.Row) (models.Tweet, error) {
	var tweet models.Tweet
	err := row.Scan(
		&tweet.ID,
		&tweet.AuthorID,
		&tweet.Content,
		&tweet.CreatedAt,
		&tweet.UpdatedAt,
	)
	return tweet, err
}

func (r *postgresRepository) CreateTweet(authorID, content string) (models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}
	if len(content) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("content exceeds %d characters", MaxTweetLength)
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tweets (id, author_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tweet.ID, tweet.AuthorID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Tweet{}, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
		}
		return models.Tweet{}, fmt.Errorf("insert tweet: %w", err)
	}
	return tweet, nil
}

func (r *postgresRepository) GetTweet(id string) (models.Tweet, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	tweet, err := scanTweet(r.pool.QueryRow(ctx, "SELECT "+tweetColumns+" FROM tweets WHERE id = $1", id))
	if err != nil {
		return models.Tweet{}, false
	}
	return tweet, true
}

func (r *postgresRepository) ListTweets(authorID string) []models.Tweet {
	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE ($1 = '' OR author_id::text = $1) ORDER BY created_at DESC", authorID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var tweets []models.Tweet
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil
		}
		tweets = append(tweets, tweet)
	}
	return tweets
}

func (r *postgresRepository) UpdateTweet(id, content string) (models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}
	if len(content) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("content exceeds %d characters", MaxTweetLength)
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	tweet, err := scanTweet(r.pool.QueryRow(ctx,
		"UPDATE tweets SET content = $2, updated_at = $3 WHERE id = $1 RETURNING "+tweetColumns,
		id, content, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	return tweet, nil
}

func (r *postgresRepository) DeleteTweet(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM tweets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}
	return nil
}

// Like operations

func (r *postgresRepository) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, int, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		"DELETE FROM likes WHERE user_id = $1 AND target = $2 AND target_id = $3",
		userID, string(target), targetID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle like: %w", err)
	}
	liked := tag.RowsAffected() == 0
	if liked {
		_, err = r.pool.Exec(ctx, `
			INSERT INTO likes (id, user_id, target, target_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, target, target_id) DO NOTHING`,
			uuid.NewString(), userID, string(target), targetID, time.Now().UTC())
		if err != nil {
			return false, 0, fmt.Errorf("toggle like: %w", err)
		}
	}

	var count int
	err = r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM likes WHERE target = $1 AND target_id = $2",
		string(target), targetID).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}
	return liked, count, nil
}

func (r *postgresRepository) CountLikes(target models.LikeTarget, targetID string) int {
	ctx, cancel := r.opCtx()
	defer cancel()
	var count int
	if err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM likes WHERE target = $1 AND target_id = $2",
		string(target), targetID).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Playlist operations

func (r *postgresRepository) loadPlaylist(ctx context.Context, id string) (models.Playlist, error) {
	var playlist models.Playlist
	err := r.pool.QueryRow(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM playlists WHERE id = $1", id).
		Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description, &playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	rows, err := r.pool.Query(ctx,
		"SELECT video_id FROM playlist_videos WHERE playlist_id = $1 ORDER BY position", id)
	if err != nil {
		return models.Playlist{}, err
	}
	defer rows.Close()
	playlist.VideoIDs = []string{}
	for rows.Next() {
		var videoID string
		if err := rows.Scan(&videoID); err != nil {
			return models.Playlist{}, err
		}
		playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	}
	return playlist, rows.Err()
}

func (r *postgresRepository) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, errors.New("name is required")
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
		}
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) GetPlaylist(id string) (models.Playlist, bool) {
	ctx, cancel := r.opCtx()
	defer cancel()
	playlist, err := r.loadPlaylist(ctx, id)
	if err != nil {
		return models.Playlist{}, false
	}
	return playlist, true
}

func (r *postgresRepository) ListPlaylists(ownerID string) []models.Playlist {
	ctx, cancel := r.opCtx()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		"SELECT id FROM playlists WHERE ($1 = '' OR owner_id::text = $1) ORDER BY created_at", ownerID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil
		}
		ids = append(ids, id)
	}

	playlists := make([]models.Playlist, 0, len(ids))
	for _, id := range ids {
		playlist, err := r.loadPlaylist(ctx, id)
		if err != nil {
			return nil
		}
		playlists = append(playlists, playlist)
	}
	return playlists
}

func (r *postgresRepository) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	playlist, err := r.loadPlaylist(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	} else if err != nil {
		return models.Playlist{}, fmt.Errorf("load playlist: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, errors.New("name cannot be empty")
		}
		playlist.Name = name
	}
	if update.Description != nil {
		playlist.Description = strings.TrimSpace(*update.Description)
	}
	playlist.UpdatedAt = time.Now().UTC()

	_, err = r.pool.Exec(ctx,
		"UPDATE playlists SET name = $2, description = $3, updated_at = $4 WHERE id = $1",
		id, playlist.Name, playlist.Description, playlist.UpdatedAt)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	if _, err := r.loadPlaylist(ctx, playlistID); errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	} else if err != nil {
		return models.Playlist{}, fmt.Errorf("load playlist: %w", err)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO playlist_videos (playlist_id, video_id, position)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = $1
		ON CONFLICT (playlist_id, video_id) DO NOTHING`,
		playlistID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		return models.Playlist{}, fmt.Errorf("add playlist video: %w", err)
	}

	playlist, err := r.loadPlaylist(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("reload playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	if _, err := r.pool.Exec(ctx,
		"DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2",
		playlistID, videoID); err != nil {
		return models.Playlist{}, fmt.Errorf("remove playlist video: %w", err)
	}

	playlist, err := r.loadPlaylist(ctx, playlistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	} else if err != nil {
		return models.Playlist{}, fmt.Errorf("reload playlist: %w", err)
	}
	return playlist, nil
}

func (r *postgresRepository) DeletePlaylist(id string) error {
	ctx, cancel := r.opCtx()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM playlists WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return nil
}
