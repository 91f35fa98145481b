package model

import "time"

// SubjectStatus 科目发布状态
//
// 显式三态取代 is_published + rejection_reason 的隐式组合：
// draft 与 rejected 都属于未发布，rejected 额外携带驳回原因。
type SubjectStatus string

const (
	SubjectStatusDraft     SubjectStatus = "draft"
	SubjectStatusPublished SubjectStatus = "published"
	SubjectStatusRejected  SubjectStatus = "rejected"
)

// Difficulty 难度档位
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// Level 三档量级（时间投入、得分潜力等）
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// MaterialType 学习资料类型
type MaterialType string

const (
	MaterialTypeVideo    MaterialType = "video"
	MaterialTypeDocument MaterialType = "document"
	MaterialTypeLink     MaterialType = "link"
)

// CourseInfo 课程基本信息
type CourseInfo struct {
	CourseID   string `json:"course_id" bson:"course_id"`
	CourseName string `json:"course_name" bson:"course_name"`
	Semester   int    `json:"semester" bson:"semester"`
	Department string `json:"department" bson:"department"`
}

// Overview 科目总体评估
type Overview struct {
	OverallDifficulty Difficulty `json:"overall_difficulty" bson:"overall_difficulty"`
	NatureType        string     `json:"nature_type" bson:"nature_type"` // theory | practical | mixed
	TimeRequired      Level      `json:"time_required" bson:"time_required"`
	ScoringPotential  Level      `json:"scoring_potential" bson:"scoring_potential"`
	RiskLevel         string     `json:"risk_level" bson:"risk_level"`
}

// Intro 科目介绍
type Intro struct {
	AboutSubject       string `json:"about_subject" bson:"about_subject"`
	GeneralTips        string `json:"general_tips" bson:"general_tips"`
	ThingsToKeepInMind string `json:"things_to_keep_in_mind" bson:"things_to_keep_in_mind"`
}

// Unit 教学单元
type Unit struct {
	UnitNumber     int        `json:"unit_number" bson:"unit_number"`
	Title          string     `json:"title" bson:"title"`
	UnitDifficulty Difficulty `json:"unit_difficulty" bson:"unit_difficulty"`
	ScoringValue   Level      `json:"scoring_value" bson:"scoring_value"`
	Topics         []string   `json:"topics" bson:"topics"`
}

// StudyModes 不同备考周期的攻略文本
type StudyModes struct {
	OneDay       string `json:"one_day" bson:"one_day"`
	ThreeDay     string `json:"three_day" bson:"three_day"`
	FullPrep     string `json:"full_prep" bson:"full_prep"`
	NinePlusMode string `json:"nine_plus_mode" bson:"nine_plus_mode"`
}

// Material 学习资料链接
type Material struct {
	Title string       `json:"title" bson:"title"`
	URL   string       `json:"url" bson:"url"`
	Type  MaterialType `json:"type" bson:"type"`
}

// AuthorRef 作者引用（用户 ID + 展示名快照）
type AuthorRef struct {
	UserID      string `json:"user_id" bson:"user_id"`
	DisplayName string `json:"display_name" bson:"display_name"`
}

// Subject 科目拆解文档（审核对象）
//
// 不变式：
//   - SubmittedBy 恒为创建者，不可变更
//   - Authors 至少包含提交者本人
//   - RejectionReason 仅在 Status == rejected 时有意义
type Subject struct {
	ID     string `json:"id" bson:"_id"`
	Name   string `json:"name" bson:"name"`
	Slug   string `json:"slug" bson:"slug"`
	Course CourseInfo `json:"course" bson:"course"`

	Overview   Overview   `json:"overview" bson:"overview"`
	Intro      Intro      `json:"intro" bson:"intro"`
	Units      []Unit     `json:"units" bson:"units"`
	StudyModes StudyModes `json:"study_modes" bson:"study_modes"`

	MidsemStrategy   string     `json:"midsem_strategy" bson:"midsem_strategy"`
	EndsemStrategy   string     `json:"endsem_strategy" bson:"endsem_strategy"`
	SyllabusImageURL string     `json:"syllabus_image_url" bson:"syllabus_image_url"`
	MidsemPyqURL     string     `json:"midsem_pyq_url" bson:"midsem_pyq_url"`
	EndsemPyqURL     string     `json:"endsem_pyq_url" bson:"endsem_pyq_url"`
	Materials        []Material `json:"materials" bson:"materials"`

	Authors     []AuthorRef   `json:"authors" bson:"authors"`
	SubmittedBy string        `json:"submitted_by" bson:"submitted_by"`
	ReviewedBy  *string       `json:"reviewed_by" bson:"reviewed_by"`
	Status      SubjectStatus `json:"status" bson:"status"`
	// 驳回原因，仅 rejected 状态有意义
	RejectionReason string `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsPublished 是否已发布
func (s *Subject) IsPublished() bool {
	return s.Status == SubjectStatusPublished
}

// IsAuthor 判断用户是否为该科目的作者（authors 或 submitted_by）
func (s *Subject) IsAuthor(userID string) bool {
	if userID == "" {
		return false
	}
	if s.SubmittedBy == userID {
		return true
	}
	for _, a := range s.Authors {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
