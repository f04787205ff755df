package domain

import "time"

// FeedbackKind definition feedback kind
type FeedbackKind string

const (
	// KindBug bug 回報
	KindBug FeedbackKind = "bug"
	// KindFeature 功能許願
	KindFeature FeedbackKind = "feature"
	// KindPraise 純稱讚
	KindPraise FeedbackKind = "praise"
)

// Project 一個接受回饋的 beta 專案
type Project struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:128;not null" json:"name"`
	OwnerID string `gorm:"size:64;index;not null" json:"owner_id"`
	// AccessCodeHash 存 bcrypt hash, 明碼只在建立當下回傳一次
	AccessCodeHash string    `gorm:"size:128;not null" json:"-"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Membership tester 加入專案的紀錄, 一人一專案一筆
type Membership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index:idx_project_user,unique;not null" json:"project_id"`
	UserID    string    `gorm:"size:64;index:idx_project_user,unique;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback tester 對專案送出的一筆回饋
type Feedback struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ProjectID uint         `gorm:"index;not null" json:"project_id"`
	UserID    string       `gorm:"size:64;index;not null" json:"user_id"`
	Kind      FeedbackKind `gorm:"size:16;not null" json:"kind"`
	Title     string       `gorm:"size:256;not null" json:"title"`
	Body      string       `gorm:"type:text" json:"body"`
	CreatedAt time.Time    `json:"created_at"`
}
