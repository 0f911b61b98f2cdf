package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/models"
)

// MaxCommentLength bounds comment bodies.
const MaxCommentLength = 1000

// MaxTweetLength bounds tweet bodies.
const MaxTweetLength = 280

type dataset struct {
	Users     map[string]models.User     `json:"users"`
	Videos    map[string]models.Video    `json:"videos"`
	Comments  map[string]models.Comment  `json:"comments"`
	Tweets    map[string]models.Tweet    `json:"tweets"`
	Playlists map[string]models.Playlist `json:"playlists"`
	Likes     map[string]models.Like     `json:"likes"`
}

// Storage is the JSON-file backed repository used for local development and
// tests. All mutations clone the dataset, persist the clone, then swap it in,
// so a failed write never leaves partial state behind.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:     make(map[string]models.User),
		Videos:    make(map[string]models.Video),
		Comments:  make(map[string]models.Comment),
		Tweets:    make(map[string]models.Tweet),
		Playlists: make(map[string]models.Playlist),
		Likes:     make(map[string]models.Like),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Tweets == nil {
		s.data.Tweets = make(map[string]models.Tweet)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
}

// NewStorage opens (or creates) the JSON datastore at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{filePath: path}
	for _, opt := range opts {
		opt.applyJSON(store)
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()

	for id, user := range src.Users {
		cloned := user
		if user.RefreshToken != nil {
			token := *user.RefreshToken
			cloned.RefreshToken = &token
		}
		clone.Users[id] = cloned
	}
	for id, video := range src.Videos {
		clone.Videos[id] = video
	}
	for id, comment := range src.Comments {
		clone.Comments[id] = comment
	}
	for id, tweet := range src.Tweets {
		clone.Tweets[id] = tweet
	}
	for id, playlist := range src.Playlists {
		cloned := playlist
		if playlist.VideoIDs != nil {
			cloned.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		}
		clone.Playlists[id] = cloned
	}
	for id, like := range src.Likes {
		clone.Likes[id] = like
	}

	return clone
}

func generateID() string {
	return uuid.NewString()
}

// Ping reports whether the datastore is usable. The JSON store is always
// reachable once loaded.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// Close releases datastore resources. The JSON store holds none.
func (s *Storage) Close() {}

// User operations

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.data.Users {
		if user.Username == username {
			return models.User{}, fmt.Errorf("username %s: %w", username, ErrConflict)
		}
		if user.Email == email {
			return models.User{}, fmt.Errorf("email %s: %w", email, ErrConflict)
		}
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            generateID(),
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     strings.TrimSpace(params.AvatarURL),
		CoverImageURL: strings.TrimSpace(params.CoverImageURL),
		PasswordHash:  hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	updated := cloneDataset(s.data)
	updated.Users[user.ID] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated

	return user, nil
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByIdentifier matches a username (case-insensitively) or an email
// address against the stored accounts.
func (s *Storage) FindUserByIdentifier(identifier string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if normalized == "" {
		return models.User{}, false
	}
	for _, user := range s.data.Users {
		if user.Username == normalized || user.Email == normalized {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return models.User{}, errors.New("email cannot be empty")
		}
		for otherID, other := range s.data.Users {
			if otherID != id && other.Email == email {
				return models.User{}, fmt.Errorf("email %s: %w", email, ErrConflict)
			}
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

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated

	return user, nil
}

func (s *Storage) SetUserPasswordHash(id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// SetUserRefreshToken overwrites the user's refresh-token slot. The last
// writer wins; there is no compare-and-swap.
func (s *Storage) SetUserRefreshToken(id string, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// DeleteUser removes the account and everything it owns: videos (with their
// comments and likes), comments, tweets, playlists, and likes.
func (s *Storage) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Users, id)
	for videoID, video := range updated.Videos {
		if video.OwnerID == id {
			deleteVideoLocked(&updated, videoID)
		}
	}
	for commentID, comment := range updated.Comments {
		if comment.AuthorID == id {
			deleteCommentLocked(&updated, commentID)
		}
	}
	for tweetID, tweet := range updated.Tweets {
		if tweet.AuthorID == id {
			deleteTweetLocked(&updated, tweetID)
		}
	}
	for playlistID, playlist := range updated.Playlists {
		if playlist.OwnerID == id {
			delete(updated.Playlists, playlistID)
		}
	}
	for likeID, like := range updated.Likes {
		if like.UserID == id {
			delete(updated.Likes, likeID)
		}
	}

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

// Video operations

func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	videoURL := strings.TrimSpace(params.VideoURL)
	if videoURL == "" {
		return models.Video{}, errors.New("videoUrl is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("user %s: %w", params.OwnerID, ErrNotFound)
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           generateID(),
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

	updated := cloneDataset(s.data)
	updated.Videos[video.ID] = video
	if err := s.persistDataset(updated); err != nil {
		return models.Video{}, err
	}
	s.data = updated

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// ListVideos returns videos sorted newest first. When ownerID is set, only
// that owner's videos are returned. Unpublished videos are filtered out
// unless includeUnpublished is true.
func (s *Storage) ListVideos(ownerID string, includeUnpublished bool) []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if ownerID != "" && video.OwnerID != ownerID {
			continue
		}
		if !video.Published && !includeUnpublished {
			continue
		}
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos
}

func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
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

	updated := cloneDataset(s.data)
	updated.Videos[id] = video
	if err := s.persistDataset(updated); err != nil {
		return models.Video{}, err
	}
	s.data = updated

	return video, nil
}

func (s *Storage) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	deleteVideoLocked(&updated, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func (s *Storage) IncrementVideoViews(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	video.Views++

	updated := cloneDataset(s.data)
	updated.Videos[id] = video
	if err := s.persistDataset(updated); err != nil {
		return models.Video{}, err
	}
	s.data = updated

	return video, nil
}

// deleteVideoLocked removes a video plus its comments, likes, and playlist
// references from the dataset. Callers hold the write lock.
func deleteVideoLocked(data *dataset, videoID string) {
	delete(data.Videos, videoID)
	for commentID, comment := range data.Comments {
		if comment.VideoID == videoID {
			deleteCommentLocked(data, commentID)
		}
	}
	for likeID, like := range data.Likes {
		if like.Target == models.LikeTargetVideo && like.TargetID == videoID {
			delete(data.Likes, likeID)
		}
	}
	for playlistID, playlist := range data.Playlists {
		trimmed := playlist.VideoIDs[:0:0]
		for _, id := range playlist.VideoIDs {
			if id != videoID {
				trimmed = append(trimmed, id)
			}
		}
		if len(trimmed) != len(playlist.VideoIDs) {
			playlist.VideoIDs = trimmed
			data.Playlists[playlistID] = playlist
		}
	}
}

// Comment operations

func (s *Storage) CreateComment(videoID, authorID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}
	if len(content) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("content exceeds %d characters", MaxCommentLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := s.data.Users[authorID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        generateID(),
		VideoID:   videoID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated := cloneDataset(s.data)
	updated.Comments[comment.ID] = comment
	if err := s.persistDataset(updated); err != nil {
		return models.Comment{}, err
	}
	s.data = updated

	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListComments returns a video's comments, newest first, capped at limit
// when limit is positive.
func (s *Storage) ListComments(videoID string, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	deleteCommentLocked(&updated, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func deleteCommentLocked(data *dataset, commentID string) {
	delete(data.Comments, commentID)
	for likeID, like := range data.Likes {
		if like.Target == models.LikeTargetComment && like.TargetID == commentID {
			delete(data.Likes, likeID)
		}
	}
}

// Tweet operations

func (s *Storage) CreateTweet(authorID, content string) (models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}
	if len(content) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("content exceeds %d characters", MaxTweetLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[authorID]; !ok {
		return models.Tweet{}, fmt.Errorf("user %s: %w", authorID, ErrNotFound)
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        generateID(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated := cloneDataset(s.data)
	updated.Tweets[tweet.ID] = tweet
	if err := s.persistDataset(updated); err != nil {
		return models.Tweet{}, err
	}
	s.data = updated

	return tweet, nil
}

func (s *Storage) GetTweet(id string) (models.Tweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tweet, ok := s.data.Tweets[id]
	return tweet, ok
}

func (s *Storage) ListTweets(authorID string) []models.Tweet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tweets := make([]models.Tweet, 0, len(s.data.Tweets))
	for _, tweet := range s.data.Tweets {
		if authorID != "" && tweet.AuthorID != authorID {
			continue
		}
		tweets = append(tweets, tweet)
	}
	sort.Slice(tweets, func(i, j int) bool {
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets
}

func (s *Storage) UpdateTweet(id, content string) (models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}
	if len(content) > MaxTweetLength {
		return models.Tweet{}, fmt.Errorf("content exceeds %d characters", MaxTweetLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tweet, ok := s.data.Tweets[id]
	if !ok {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}
	tweet.Content = content
	tweet.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Tweets[id] = tweet
	if err := s.persistDataset(updated); err != nil {
		return models.Tweet{}, err
	}
	s.data = updated

	return tweet, nil
}

func (s *Storage) DeleteTweet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Tweets[id]; !ok {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	deleteTweetLocked(&updated, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func deleteTweetLocked(data *dataset, tweetID string) {
	delete(data.Tweets, tweetID)
	for likeID, like := range data.Likes {
		if like.Target == models.LikeTargetTweet && like.TargetID == tweetID {
			delete(data.Likes, likeID)
		}
	}
}

// Like operations

func (s *Storage) targetExistsLocked(target models.LikeTarget, targetID string) bool {
	switch target {
	case models.LikeTargetVideo:
		_, ok := s.data.Videos[targetID]
		return ok
	case models.LikeTargetComment:
		_, ok := s.data.Comments[targetID]
		return ok
	case models.LikeTargetTweet:
		_, ok := s.data.Tweets[targetID]
		return ok
	default:
		return false
	}
}

// ToggleLike flips the user's like on the target and reports the new state
// plus the resulting like count.
func (s *Storage) ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return false, 0, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if !s.targetExistsLocked(target, targetID) {
		return false, 0, fmt.Errorf("%s %s: %w", target, targetID, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	liked := true
	for likeID, like := range updated.Likes {
		if like.UserID == userID && like.Target == target && like.TargetID == targetID {
			delete(updated.Likes, likeID)
			liked = false
			break
		}
	}
	if liked {
		like := models.Like{
			ID:        generateID(),
			UserID:    userID,
			Target:    target,
			TargetID:  targetID,
			CreatedAt: time.Now().UTC(),
		}
		updated.Likes[like.ID] = like
	}

	if err := s.persistDataset(updated); err != nil {
		return false, 0, err
	}
	s.data = updated

	count := 0
	for _, like := range s.data.Likes {
		if like.Target == target && like.TargetID == targetID {
			count++
		}
	}
	return liked, count, nil
}

func (s *Storage) CountLikes(target models.LikeTarget, targetID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, like := range s.data.Likes {
		if like.Target == target && like.TargetID == targetID {
			count++
		}
	}
	return count
}

// Playlist operations

func (s *Storage) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, errors.New("name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          generateID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	updated := cloneDataset(s.data)
	updated.Playlists[playlist.ID] = playlist
	if err := s.persistDataset(updated); err != nil {
		return models.Playlist{}, err
	}
	s.data = updated

	return playlist, nil
}

func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	return playlist, ok
}

func (s *Storage) ListPlaylists(ownerID string) []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlists := make([]models.Playlist, 0, len(s.data.Playlists))
	for _, playlist := range s.data.Playlists {
		if ownerID != "" && playlist.OwnerID != ownerID {
			continue
		}
		playlists = append(playlists, playlist)
	}
	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].CreatedAt.Before(playlists[j].CreatedAt)
	})
	return playlists
}

func (s *Storage) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[id]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
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

	updated := cloneDataset(s.data)
	updated.Playlists[id] = playlist
	if err := s.persistDataset(updated); err != nil {
		return models.Playlist{}, err
	}
	s.data = updated

	return playlist, nil
}

// AddPlaylistVideo appends the video to the playlist. Adding a video that is
// already present is a no-op rather than an error.
func (s *Storage) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return playlist, nil
		}
	}
	playlist.VideoIDs = append(append([]string(nil), playlist.VideoIDs...), videoID)
	playlist.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Playlists[playlistID] = playlist
	if err := s.persistDataset(updated); err != nil {
		return models.Playlist{}, err
	}
	s.data = updated

	return playlist, nil
}

func (s *Storage) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.data.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	trimmed := make([]string, 0, len(playlist.VideoIDs))
	for _, existing := range playlist.VideoIDs {
		if existing != videoID {
			trimmed = append(trimmed, existing)
		}
	}
	playlist.VideoIDs = trimmed
	playlist.UpdatedAt = time.Now().UTC()

	updated := cloneDataset(s.data)
	updated.Playlists[playlistID] = playlist
	if err := s.persistDataset(updated); err != nil {
		return models.Playlist{}, err
	}
	s.data = updated

	return playlist, nil
}

func (s *Storage) DeletePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Playlists[id]; !ok {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	updated := cloneDataset(s.data)
	delete(updated.Playlists, id)
	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}
