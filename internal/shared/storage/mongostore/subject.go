package mongostore

import (
	"context"

	"sahayak/internal/shared/model"
	"sahayak/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// SubjectStore
// ============================================================================

func (s *Store) CreateSubject(ctx context.Context, subject *model.Subject) error {
	return insertOne(ctx, s.col(ColSubjects), subject)
}

func (s *Store) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	return findOne[model.Subject](ctx, s.col(ColSubjects), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetSubjectBySlug(ctx context.Context, slug string) (*model.Subject, error) {
	return findOne[model.Subject](ctx, s.col(ColSubjects), bson.D{{Key: "slug", Value: slug}})
}

// ListSubjects 按条件查询科目列表
func (s *Store) ListSubjects(ctx context.Context, filter storage.SubjectFilter, sort storage.SubjectSort) ([]*model.Subject, error) {
	query := bson.D{}
	if filter.Unpublished {
		query = append(query, bson.E{Key: "status", Value: bson.D{
			{Key: "$in", Value: []model.SubjectStatus{model.SubjectStatusDraft, model.SubjectStatusRejected}},
		}})
	} else if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.Department != "" {
		query = append(query, bson.E{Key: "course.department", Value: filter.Department})
	}
	if filter.Semester > 0 {
		query = append(query, bson.E{Key: "course.semester", Value: filter.Semester})
	}
	if filter.Search != "" {
		query = append(query, bson.E{Key: "name", Value: bson.D{
			{Key: "$regex", Value: filter.Search},
			{Key: "$options", Value: "i"},
		}})
	}
	if filter.SubmittedBy != "" {
		query = append(query, bson.E{Key: "submitted_by", Value: filter.SubmittedBy})
	}

	opts := options.Find().SetSort(sortSpec(sort))
	return findMany[model.Subject](ctx, s.col(ColSubjects), query, opts)
}

func sortSpec(sort storage.SubjectSort) bson.D {
	switch sort {
	case storage.SortByCreatedAsc:
		return bson.D{{Key: "created_at", Value: 1}}
	case storage.SortByCreatedDesc:
		return bson.D{{Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "course.semester", Value: 1}}
	}
}

// UpdateSubjectFields 按 _id 部分更新，fields 之外的字段不受影响
func (s *Store) UpdateSubjectFields(ctx context.Context, id string, fields map[string]interface{}) error {
	update := bson.D{}
	for k, v := range fields {
		update = append(update, bson.E{Key: k, Value: v})
	}
	return updateFields(ctx, s.col(ColSubjects), id, update)
}

func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColSubjects), id)
}
