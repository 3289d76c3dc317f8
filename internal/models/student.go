package models

import "time"

// Grade is the fixed grade-cohort a student belongs to.
type Grade string

const (
	GradeKindergarten   Grade = "유치부"
	GradeFirst          Grade = "1학년"
	GradeSecond         Grade = "2학년"
	GradeFirstCommunion Grade = "첫영성체"
	GradeFourth         Grade = "4학년"
	GradeFifth          Grade = "5학년"
	GradeSixth          Grade = "6학년"
)

// Grades lists every cohort in display order.
var Grades = []Grade{
	GradeKindergarten,
	GradeFirst,
	GradeSecond,
	GradeFirstCommunion,
	GradeFourth,
	GradeFifth,
	GradeSixth,
}

// Valid returns true when the grade is one of the supported cohorts.
func (g Grade) Valid() bool {
	for _, grade := range Grades {
		if g == grade {
			return true
		}
	}
	return false
}

// NumberPrefix returns the short prefix used when assigning student numbers.
func (g Grade) NumberPrefix() string {
	switch g {
	case GradeKindergarten:
		return "유"
	case GradeFirst:
		return "1"
	case GradeSecond:
		return "2"
	case GradeFirstCommunion:
		return "첫"
	case GradeFourth:
		return "4"
	case GradeFifth:
		return "5"
	case GradeSixth:
		return "6"
	default:
		return "?"
	}
}

// Student represents a registered student with their running talent balance.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BaptismName  *string   `db:"baptism_name" json:"baptism_name,omitempty"`
	Grade        Grade     `db:"grade" json:"grade"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	Talent       int       `db:"talent" json:"talent"`
	Email        *string   `db:"email" json:"email,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins a student with their department.
type StudentDetail struct {
	Student
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
	// StudentNumber is derived on read from the grade prefix and the
	// student's alphabetical rank within the grade.
	StudentNumber string `db:"-" json:"student_number,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	Grade        string
	DepartmentID string
	Page         int
	PageSize     int
}

// StudentRank holds the data needed to derive a student number.
type StudentRank struct {
	ID    string `db:"id"`
	Name  string `db:"name"`
	Grade Grade  `db:"grade"`
}
