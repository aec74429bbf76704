package models

import "time"

// LoginAttempt is a row in the sliding login window, per client IP.
type LoginAttempt struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	IP          string    `gorm:"column:ip;not null;index"`
	Success     bool      `gorm:"column:success;not null"`
	AttemptedAt time.Time `gorm:"column:attempted_at;not null;index"`
}

func (LoginAttempt) TableName() string { return "login_attempts" }

// PasswordReset holds the single active reset token for an email.
type PasswordReset struct {
	Email     string    `gorm:"column:email;primaryKey"`
	Token     string    `gorm:"column:token;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (PasswordReset) TableName() string { return "password_resets" }
