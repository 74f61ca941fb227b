package models

import (
	"time"

	uuid "github.com/gofrs/uuid"
)

// AuthorSnapshot is the denormalized display data of a user, copied by value
// at write time. It is never refreshed when the profile changes later.
type AuthorSnapshot struct {
	Username  string `json:"username" bson:"username" db:"username"`
	FirstName string `json:"firstName" bson:"firstName" db:"first_name"`
	LastName  string `json:"lastName" bson:"lastName" db:"last_name"`
	Avatar    string `json:"avatar" bson:"avatar" db:"avatar"`
}

// Post represents the complete post document, including its embedded
// likes and comments. The store persists it as one unit.
type Post struct {
	ObjectId       uuid.UUID `json:"objectId" bson:"objectId" db:"id"`
	OwnerUserId    uuid.UUID `json:"ownerUserId" bson:"ownerUserId" db:"owner_user_id"`
	AuthorSnapshot `bson:",inline"`

	Text     string   `json:"text" bson:"text" db:"text"`
	Images   []string `json:"images" bson:"images" db:"-"`
	Location string   `json:"location" bson:"location" db:"location"`
	Tags     []string `json:"tags" bson:"tags" db:"-"`

	Likes    []Like    `json:"likes" bson:"likes" db:"-"`
	Comments []Comment `json:"comments" bson:"comments" db:"-"`

	CreatedAt   time.Time `json:"createdAt" bson:"createdAt" db:"created_at"`
	CreatedDate int64     `json:"createdDate" bson:"createdDate" db:"created_date"`

	// Version is bumped by the store on every committed write.
	Version int64 `json:"version" bson:"version" db:"version"`
}

// Like is one user's like on a post
type Like struct {
	UserId         uuid.UUID `json:"userId" bson:"userId"`
	AuthorSnapshot `bson:",inline"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

// Comment is one entry of a post's ordered comment list
type Comment struct {
	ObjectId       uuid.UUID `json:"objectId" bson:"objectId"`
	OwnerUserId    uuid.UUID `json:"ownerUserId" bson:"ownerUserId"`
	AuthorSnapshot `bson:",inline"`
	Text           string    `json:"text" bson:"text"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	CreatedDate    int64     `json:"createdDate" bson:"createdDate"`
}

// NewPost builds a fresh post with empty likes and comments.
func NewPost(ownerID uuid.UUID, author AuthorSnapshot, text string, images []string, location string, tags []string, now time.Time) (*Post, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Post{
		ObjectId:       id,
		OwnerUserId:    ownerID,
		AuthorSnapshot: author,
		Text:           text,
		Images:         append([]string(nil), images...),
		Location:       location,
		Tags:           append([]string(nil), tags...),
		Likes:          []Like{},
		Comments:       []Comment{},
		CreatedAt:      now,
		CreatedDate:    now.Unix(),
	}, nil
}

// NewComment builds a comment with a freshly generated id.
func NewComment(authorID uuid.UUID, author AuthorSnapshot, text string, now time.Time) (Comment, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Comment{}, err
	}
	return Comment{
		ObjectId:       id,
		OwnerUserId:    authorID,
		AuthorSnapshot: author,
		Text:           text,
		CreatedAt:      now,
		CreatedDate:    now.Unix(),
	}, nil
}

// Clone returns a deep copy. Slices of the copy never share backing arrays
// with the original.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	c := *p
	c.Images = append([]string(nil), p.Images...)
	c.Tags = append([]string(nil), p.Tags...)
	c.Likes = append(make([]Like, 0, len(p.Likes)), p.Likes...)
	c.Comments = append(make([]Comment, 0, len(p.Comments)), p.Comments...)
	return &c
}

// IsOwnedBy reports whether userID created the post
func (p *Post) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerUserId == userID
}

// HasLike reports whether userID currently likes the post
func (p *Post) HasLike(userID uuid.UUID) bool {
	return p.likeIndex(userID) >= 0
}

func (p *Post) likeIndex(userID uuid.UUID) int {
	for i := range p.Likes {
		if p.Likes[i].UserId == userID {
			return i
		}
	}
	return -1
}

// ToggleLike flips userID's membership in the like set and reports whether
// the user likes the post afterwards.
func (p *Post) ToggleLike(userID uuid.UUID, author AuthorSnapshot, now time.Time) bool {
	if i := p.likeIndex(userID); i >= 0 {
		p.Likes = append(p.Likes[:i:i], p.Likes[i+1:]...)
		return false
	}
	p.Likes = append(p.Likes, Like{UserId: userID, AuthorSnapshot: author, CreatedAt: now})
	return true
}

// FindComment returns the comment with the given id. Ids compare by value.
func (p *Post) FindComment(commentID uuid.UUID) (*Comment, bool) {
	for i := range p.Comments {
		if p.Comments[i].ObjectId == commentID {
			return &p.Comments[i], true
		}
	}
	return nil, false
}

// RemoveComment drops the comment with the given id, keeping the order of
// the remaining ones.
func (p *Post) RemoveComment(commentID uuid.UUID) bool {
	for i := range p.Comments {
		if p.Comments[i].ObjectId == commentID {
			p.Comments = append(p.Comments[:i:i], p.Comments[i+1:]...)
			return true
		}
	}
	return false
}

// IsAuthoredBy reports whether userID wrote the comment
func (c *Comment) IsAuthoredBy(userID uuid.UUID) bool {
	return c.OwnerUserId == userID
}

// CreatePostRequest represents the request payload for creating a post
type CreatePostRequest struct {
	Text     string   `json:"text"`
	Images   []string `json:"images"`
	Location string   `json:"location"`
	Tags     []string `json:"tags"`
}

// CreateCommentRequest represents the request payload for commenting on a post
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// PostQueryFilter represents query filters for listing posts.
// Decoded from the query string by internal/pkg/parser.
type PostQueryFilter struct {
	OwnerUserId *uuid.UUID `schema:"-"`
	Location    string     `schema:"-"`
	Page        int        `schema:"page"`
	Limit       int        `schema:"limit"`
}

// PostsListResponse represents the response for listing posts
type PostsListResponse struct {
	Posts   []*Post `json:"posts"`
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	HasMore bool    `json:"hasMore"`
}

// CreatePostResponse represents the response after creating a post
type CreatePostResponse struct {
	ObjectId string `json:"objectId"`
	Post     *Post  `json:"post"`
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
