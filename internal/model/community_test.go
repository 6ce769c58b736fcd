package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLikeSnapshot(t *testing.T) {
	photo := &CatalogPhoto{
		ID:             "p1",
		AltDescription: "a red bike",
		Likes:          12,
		URLs:           PhotoURLs{Regular: "https://img/regular", Thumb: "https://img/thumb"},
		User: CatalogUser{
			Username:     "jane",
			Name:         "Jane Doe",
			ProfileImage: ProfileImage{Medium: "https://img/jane"},
		},
	}

	like := NewLikeSnapshot("u1", photo)

	assert.Equal(t, "u1_p1", like.ID)
	assert.Equal(t, LikeKey("u1", "p1"), like.ID)
	assert.Equal(t, "unsplash", like.Source)
	assert.Equal(t, "https://img/regular", like.PhotoURL)
	assert.Equal(t, "https://img/thumb", like.Thumb)
	assert.Equal(t, "a red bike", like.Description)
	assert.Equal(t, "jane", like.AuthorUsername)
	assert.Equal(t, "Jane Doe", like.AuthorName)
	assert.Equal(t, "https://img/jane", like.AuthorProfileImage)
	assert.Equal(t, 12, like.LikesCount)
}

func TestUserPatch(t *testing.T) {
	assert.True(t, UserPatch{}.Empty())

	empty := ""
	bio := "hi"
	u := &User{PhotoURL: "https://x", Bio: "old"}
	UserPatch{PhotoURL: &empty, Bio: &bio}.Apply(u)

	assert.Equal(t, "", u.PhotoURL)
	assert.Equal(t, "hi", u.Bio)
}
