package model

import "time"

// DefaultDisplayName 资料文档和身份都没有名字时使用
const DefaultDisplayName = "Usuário"

// Identity 当前操作者的身份，由身份提供方签发。nil 表示未登录。
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// User 用户资料文档 (users/{uid})，可能晚于身份创建，缺失时按默认值读取
type User struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name,omitempty"`
	Email     string    `json:"email" firestore:"email,omitempty"`
	Bio       string    `json:"bio" firestore:"bio,omitempty"`
	PhotoURL  string    `json:"photoURL" firestore:"photoURL"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// UserPatch 资料文档的合并更新，nil 字段不修改
type UserPatch struct {
	Name     *string
	Email    *string
	Bio      *string
	PhotoURL *string
}

// Empty 判断是否没有任何需要写入的字段
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Bio == nil && p.PhotoURL == nil
}

// Apply 把补丁应用到资料文档上
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
}

// Account 本地身份提供方保存的账号 (accounts/{uid})
type Account struct {
	UID          string    `json:"uid" firestore:"-"`
	Email        string    `json:"email" firestore:"email"`
	DisplayName  string    `json:"displayName" firestore:"displayName"`
	PasswordHash string    `json:"-" firestore:"passwordHash"` // 密码哈希不应在JSON中暴露
	PhotoURL     string    `json:"photoURL" firestore:"photoURL"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Identity 返回账号对应的身份
func (a *Account) Identity() *Identity {
	return &Identity{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	}
}
