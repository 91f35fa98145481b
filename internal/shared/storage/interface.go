// Package storage 定义持久化存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：mongostore/（生产）、memstore/（测试）
//   - 初始化时通过依赖注入传入实现
package storage

import (
	"context"

	"sahayak/internal/shared/model"
)

// SubjectSort 列表排序方式
type SubjectSort int

const (
	// SortBySemester 按学期升序（公开列表）
	SortBySemester SubjectSort = iota
	// SortByCreatedAsc 按创建时间升序（审核队列，先到先审）
	SortByCreatedAsc
	// SortByCreatedDesc 按创建时间降序（个人投稿列表）
	SortByCreatedDesc
)

// SubjectFilter 科目查询条件，零值字段不参与过滤
type SubjectFilter struct {
	Status      model.SubjectStatus // 精确匹配状态
	Unpublished bool                // true 时匹配所有未发布状态（draft + rejected）
	Department  string
	Semester    int
	Search      string // 名称子串匹配，大小写不敏感
	SubmittedBy string
}

// UserStore 用户存储接口（凭证库适配器）
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserRole(ctx context.Context, id string, role model.UserRole) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// SubjectStore 科目存储接口
//
// UpdateSubjectFields 只写入显式给出的字段（部分更新），
// 单次调用是一个原子文档操作。
type SubjectStore interface {
	CreateSubject(ctx context.Context, subject *model.Subject) error
	GetSubject(ctx context.Context, id string) (*model.Subject, error)
	GetSubjectBySlug(ctx context.Context, slug string) (*model.Subject, error)
	ListSubjects(ctx context.Context, filter SubjectFilter, sort SubjectSort) ([]*model.Subject, error)
	UpdateSubjectFields(ctx context.Context, id string, fields map[string]interface{}) error
	DeleteSubject(ctx context.Context, id string) error
}

// Store 持久化存储组合接口
type Store interface {
	UserStore
	SubjectStore
	Close() error
}
