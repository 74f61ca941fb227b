package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/qolzam/feed/posts/models"
)

const (
	maxTextLength     = 10000
	maxCommentLength  = 2000
	maxTagLength      = 50
	maxLocationLength = 200
)

// ValidateCreatePostRequest validates the create post request.
// Text, images, location and tags are all required.
func ValidateCreatePostRequest(req *models.CreatePostRequest) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}

	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(req.Text) > maxTextLength {
		return fmt.Errorf("text must be less than %d characters", maxTextLength)
	}

	if len(req.Images) == 0 {
		return fmt.Errorf("images are required")
	}
	for i, image := range req.Images {
		if strings.TrimSpace(image) == "" {
			return fmt.Errorf("image at index %d cannot be empty", i)
		}
	}

	if strings.TrimSpace(req.Location) == "" {
		return fmt.Errorf("location is required")
	}
	if len(req.Location) > maxLocationLength {
		return fmt.Errorf("location cannot exceed %d characters", maxLocationLength)
	}

	if len(req.Tags) == 0 {
		return fmt.Errorf("tags are required")
	}
	for i, tag := range req.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tag at index %d cannot be empty", i)
		}
		if len(tag) > maxTagLength {
			return fmt.Errorf("tag at index %d cannot exceed %d characters", i, maxTagLength)
		}
	}

	return nil
}

// ValidateCommentText validates the body of a new comment
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(text) > maxCommentLength {
		return fmt.Errorf("text cannot exceed %d characters", maxCommentLength)
	}
	return nil
}

// ValidatePostQueryFilter normalizes paging in place.
// A missing page starts at 1, a missing limit falls back to defaultLimit and
// limits above maxLimit are clamped.
func ValidatePostQueryFilter(filter *models.PostQueryFilter, defaultLimit, maxLimit int) error {
	if filter == nil {
		return fmt.Errorf("filter is required")
	}

	if filter.Page < 0 {
		return fmt.Errorf("page cannot be negative")
	}
	if filter.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	// the row offset of the page must fit in an int
	if filter.Page-1 > (math.MaxInt-filter.Limit)/filter.Limit {
		return fmt.Errorf("page is too large")
	}

	return nil
}
