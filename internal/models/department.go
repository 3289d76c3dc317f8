package models

import "time"

// Department is an elective sub-group students may belong to.
type Department struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentDetail extends a department with its member roster.
type DepartmentDetail struct {
	Department
	Students []Student `json:"students"`
}
