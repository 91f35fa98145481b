package auth

import (
	"sahayak/internal/shared/model"
)

// Operation 授权判定覆盖的操作
type Operation string

const (
	OpReadPublic  Operation = "read_public"
	OpReadOwn     Operation = "read_own"
	OpCreate      Operation = "create"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpModerate    Operation = "moderate"
	OpManageUsers Operation = "manage_users"
)

// Resource 授权判定用的资源描述符
//
// 由调用方在一次存储查询后构造传入，Admit 本身不触存储。
type Resource struct {
	SubmittedBy string
	AuthorIDs   []string
}

// SubjectResource 从科目记录构造资源描述符
func SubjectResource(s *model.Subject) *Resource {
	res := &Resource{SubmittedBy: s.SubmittedBy}
	for _, a := range s.Authors {
		res.AuthorIDs = append(res.AuthorIDs, a.UserID)
	}
	return res
}

// isOwner 判断 userID 是否出现在 authors/submitted_by 集合中
func (r *Resource) isOwner(userID string) bool {
	if r == nil || userID == "" {
		return false
	}
	if r.SubmittedBy == userID {
		return true
	}
	for _, id := range r.AuthorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Admit 纯准入判定函数
//
// 规则按优先级求值：
//  1. read_public 永远放行，无需身份
//  2. 其余操作缺少身份时统一返回 ErrUnauthenticated
//  3. manage_users / moderate 仅限 admin
//  4. create 仅限 admin / contributor
//  5. update / delete 要求 admin 或资源作者
//  6. read_own 要求 principal 即提交者
func Admit(principal *model.User, op Operation, res *Resource) error {
	if op == OpReadPublic {
		return nil
	}
	if principal == nil {
		return ErrUnauthenticated
	}

	switch op {
	case OpManageUsers, OpModerate:
		if principal.Role != model.UserRoleAdmin {
			return ErrForbiddenRole
		}
		return nil

	case OpCreate:
		if principal.Role != model.UserRoleAdmin && principal.Role != model.UserRoleContributor {
			return ErrForbiddenRole
		}
		return nil

	case OpUpdate, OpDelete:
		if principal.Role == model.UserRoleAdmin {
			return nil
		}
		if !res.isOwner(principal.ID) {
			return ErrForbiddenOwnership
		}
		return nil

	case OpReadOwn:
		if res != nil && res.SubmittedBy != principal.ID {
			return ErrForbiddenOwnership
		}
		return nil
	}

	return ErrForbiddenRole
}
