package model

import "time"

// LikeSourceCatalog 从图片目录点赞时的来源标记
const LikeSourceCatalog = "unsplash"

// Post 用户上传的帖子 (posts/{id})
type Post struct {
	ID          string    `json:"id" firestore:"-"`
	UserID      string    `json:"userId" firestore:"userId"`
	PhotoURL    string    `json:"photoURL" firestore:"photoURL"`
	StoragePath string    `json:"storagePath" firestore:"storagePath"`
	Description string    `json:"description" firestore:"description"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// Like 点赞边 (likes/{uid}_{photoId})，带有图片的冗余快照
type Like struct {
	ID                 string    `json:"id" firestore:"-"`
	UserID             string    `json:"userId" firestore:"userId"`
	PhotoID            string    `json:"photoId" firestore:"photoId"`
	Source             string    `json:"source" firestore:"source"`
	PhotoURL           string    `json:"photoURL" firestore:"photoURL"`
	Thumb              string    `json:"thumb" firestore:"thumb"`
	Description        string    `json:"description" firestore:"description"`
	AuthorUsername     string    `json:"authorUsername" firestore:"authorUsername"`
	AuthorName         string    `json:"authorName" firestore:"authorName"`
	AuthorProfileImage string    `json:"authorProfileImage" firestore:"authorProfileImage"`
	LikesCount         int       `json:"likesCount" firestore:"likesCount"`
	CreatedAt          time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// LikeKey 点赞边的复合键
func LikeKey(userID, photoID string) string {
	return userID + "_" + photoID
}

// NewLikeSnapshot 根据目录图片生成点赞边
func NewLikeSnapshot(userID string, photo *CatalogPhoto) *Like {
	return &Like{
		ID:                 LikeKey(userID, photo.ID),
		UserID:             userID,
		PhotoID:            photo.ID,
		Source:             LikeSourceCatalog,
		PhotoURL:           photo.URLs.Regular,
		Thumb:              photo.URLs.Thumb,
		Description:        photo.AltDescription,
		AuthorUsername:     photo.User.Username,
		AuthorName:         photo.User.Name,
		AuthorProfileImage: photo.User.ProfileImage.Medium,
		LikesCount:         photo.Likes,
	}
}

// Follow 关注边 (follows/{followerId}_{handle})
type Follow struct {
	ID          string    `json:"id" firestore:"-"`
	FollowerID  string    `json:"followerId" firestore:"followerId"`
	FollowingID string    `json:"followingId" firestore:"followingId"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// FollowKey 关注边的复合键
func FollowKey(followerID, handle string) string {
	return followerID + "_" + handle
}

// Upload 一次上传的图片内容
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
