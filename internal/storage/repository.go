package storage

import (
	"context"
	"errors"

	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/models"
)

var (
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint (username, email)
	// would be violated.
	ErrConflict = errors.New("already in use")
)

// CreateUserParams captures the attributes that can be set when registering
// a user. AvatarURL and CoverImageURL are opaque references to externally
// hosted images.
type CreateUserParams struct {
	Username      string
	Email         string
	Password      string
	FullName      string
	AvatarURL     string
	CoverImageURL string
}

// UserUpdate represents the profile fields that can be modified for an
// existing user. Nil fields are left untouched.
type UserUpdate struct {
	Email         *string
	FullName      *string
	AvatarURL     *string
	CoverImageURL *string
}

// CreateVideoParams captures the attributes of a newly published video entry.
type CreateVideoParams struct {
	OwnerID      string
	Title        string
	Description  string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
	Published    bool
}

// VideoUpdate represents the mutable fields of a video. Nil fields are left
// untouched.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
	Published    *bool
}

// PlaylistUpdate represents the mutable fields of a playlist.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// Repository exposes the datastore operations required by the API handlers
// and the session manager.
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	CreateUser(params CreateUserParams) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByIdentifier(identifier string) (models.User, bool)
	ListUsers() []models.User
	UpdateUser(id string, update UserUpdate) (models.User, error)
	SetUserPasswordHash(id, hash string) error
	SetUserRefreshToken(id string, token *string) error
	DeleteUser(id string) error

	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ListVideos(ownerID string, includeUnpublished bool) []models.Video
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(id string) error
	IncrementVideoViews(id string) (models.Video, error)

	CreateComment(videoID, authorID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListComments(videoID string, limit int) ([]models.Comment, error)
	DeleteComment(id string) error

	CreateTweet(authorID, content string) (models.Tweet, error)
	GetTweet(id string) (models.Tweet, bool)
	ListTweets(authorID string) []models.Tweet
	UpdateTweet(id, content string) (models.Tweet, error)
	DeleteTweet(id string) error

	ToggleLike(userID string, target models.LikeTarget, targetID string) (bool, int, error)
	CountLikes(target models.LikeTarget, targetID string) int

	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(ownerID string) []models.Playlist
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	DeletePlaylist(id string) error
}

var (
	_ Repository     = (*Storage)(nil)
	_ auth.UserStore = (*Storage)(nil)
)
