package model

import "time"

// UserRole 用户角色
//
// 角色是唯一的授权轴：admin 负责审核与用户管理，contributor 投稿，
// reader 仅访问已发布内容。
type UserRole string

const (
	UserRoleAdmin       UserRole = "admin"
	UserRoleContributor UserRole = "contributor"
	UserRoleReader      UserRole = "reader"
)

// ValidRole 校验角色字符串是否为系统接受的值
// 非法角色在注册/改角色入口拒绝，不进入授权判定
func ValidRole(role string) bool {
	switch UserRole(role) {
	case UserRoleAdmin, UserRoleContributor, UserRoleReader:
		return true
	}
	return false
}

// User 用户（认证主体）
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	PasswordHash string    `json:"-" bson:"password_hash"` // never expose in JSON
	Role         UserRole  `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
