// Package memstore 实现内存版 storage.Store
//
// 用于单元测试与无 MongoDB 环境的本地开发，
// 行为与 mongostore 保持一致：findOne 未命中返回 (nil, nil)，
// 更新/删除不存在的 ID 返回 storage.ErrNotFound，唯一键冲突返回 ErrDuplicate。
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"
)

// Store 内存存储，持有进程内状态，内部用互斥锁保护
type Store struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	subjects map[string]*model.Subject
}

// NewStore 创建内存存储实例
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		subjects: make(map[string]*model.Subject),
	}
}

// Close 关闭存储（无操作）
func (s *Store) Close() error {
	return nil
}

// 确保实现组合接口
var _ storage.Store = (*Store)(nil)

// ============================================================================
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return storage.ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return storage.ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// ============================================================================
// SubjectStore
// ============================================================================

func (s *Store) CreateSubject(ctx context.Context, subject *model.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[subject.ID]; ok {
		return storage.ErrDuplicate
	}
	for _, sub := range s.subjects {
		if sub.Slug == subject.Slug {
			return storage.ErrDuplicate
		}
	}
	cp := *subject
	s.subjects[subject.ID] = &cp
	return nil
}

func (s *Store) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subjects[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetSubjectBySlug(ctx context.Context, slug string) (*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subjects {
		if sub.Slug == slug {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListSubjects(ctx context.Context, filter storage.SubjectFilter, sortBy storage.SubjectSort) ([]*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*model.Subject{}
	for _, sub := range s.subjects {
		if !matches(sub, filter) {
			continue
		}
		cp := *sub
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		switch sortBy {
		case storage.SortByCreatedAsc:
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		case storage.SortByCreatedDesc:
			return results[i].CreatedAt.After(results[j].CreatedAt)
		default:
			return results[i].Course.Semester < results[j].Course.Semester
		}
	})
	return results, nil
}

func matches(sub *model.Subject, filter storage.SubjectFilter) bool {
	if filter.Unpublished && sub.Status == model.SubjectStatusPublished {
		return false
	}
	if !filter.Unpublished && filter.Status != "" && sub.Status != filter.Status {
		return false
	}
	if filter.Department != "" && sub.Course.Department != filter.Department {
		return false
	}
	if filter.Semester > 0 && sub.Course.Semester != filter.Semester {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(sub.Name), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.SubmittedBy != "" && sub.SubmittedBy != filter.SubmittedBy {
		return false
	}
	return true
}

// UpdateSubjectFields 按字段名部分更新，字段名与 bson tag 一致
func (s *Store) UpdateSubjectFields(ctx context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subjects[id]
	if !ok {
		return storage.ErrNotFound
	}

	for k, v := range fields {
		applyField(sub, k, v)
	}
	return nil
}

func applyField(sub *model.Subject, key string, value interface{}) {
	switch key {
	case "name":
		sub.Name = value.(string)
	case "course":
		sub.Course = value.(model.CourseInfo)
	case "overview":
		sub.Overview = value.(model.Overview)
	case "intro":
		sub.Intro = value.(model.Intro)
	case "units":
		sub.Units = value.([]model.Unit)
	case "study_modes":
		sub.StudyModes = value.(model.StudyModes)
	case "midsem_strategy":
		sub.MidsemStrategy = value.(string)
	case "endsem_strategy":
		sub.EndsemStrategy = value.(string)
	case "syllabus_image_url":
		sub.SyllabusImageURL = value.(string)
	case "midsem_pyq_url":
		sub.MidsemPyqURL = value.(string)
	case "endsem_pyq_url":
		sub.EndsemPyqURL = value.(string)
	case "materials":
		sub.Materials = value.([]model.Material)
	case "authors":
		sub.Authors = value.([]model.AuthorRef)
	case "status":
		sub.Status = value.(model.SubjectStatus)
	case "reviewed_by":
		switch v := value.(type) {
		case nil:
			sub.ReviewedBy = nil
		case string:
			sub.ReviewedBy = &v
		case *string:
			sub.ReviewedBy = v
		}
	case "rejection_reason":
		sub.RejectionReason = value.(string)
	case "updated_at":
		sub.UpdatedAt = value.(time.Time)
	}
}

func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.subjects, id)
	return nil
}
