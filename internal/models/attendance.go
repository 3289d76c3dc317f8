package models

import "time"

// AttendanceStatus is the presence state of an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceType distinguishes grade-cohort records from department records
// for the same student and date.
type AttendanceType string

const (
	AttendanceTypeGrade      AttendanceType = "grade"
	AttendanceTypeDepartment AttendanceType = "department"
)

// Valid returns true when the type is a supported value.
func (t AttendanceType) Valid() bool {
	switch t {
	case AttendanceTypeGrade, AttendanceTypeDepartment:
		return true
	default:
		return false
	}
}

// Attendance is one weekly attendance row. At most one row exists per
// (student, date, type).
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	DepartmentID *string          `db:"department_id" json:"department_id,omitempty"`
	Date         time.Time        `db:"date" json:"date"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Type         AttendanceType   `db:"type" json:"type"`
	TalentGiven  int              `db:"talent_given" json:"talent_given"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail joins an attendance row with student and department names.
type AttendanceDetail struct {
	Attendance
	StudentName    string  `db:"student_name" json:"student_name"`
	StudentGrade   Grade   `db:"student_grade" json:"student_grade"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// AttendanceFilter defines query filters for attendance listings.
type AttendanceFilter struct {
	StudentID    string
	StudentName  string
	Grade        string
	DepartmentID string
	Type         string
	Date         *time.Time
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	PageSize     int
}

// AttendanceTrendPoint counts records for a single date.
type AttendanceTrendPoint struct {
	Date    time.Time `db:"date" json:"date"`
	Total   int       `db:"total" json:"total"`
	Present int       `db:"present" json:"present"`
}
