package models

// StatisticsOverview summarises the whole dataset.
type StatisticsOverview struct {
	StudentCount    int     `json:"student_count"`
	AttendanceCount int     `json:"attendance_count"`
	PresentCount    int     `json:"present_count"`
	AbsentCount     int     `json:"absent_count"`
	AttendanceRate  float64 `json:"attendance_rate"`
	TotalTalent     int     `json:"total_talent"`
	AverageTalent   float64 `json:"average_talent"`
}

// StudentStatistics summarises one student's attendance and balance.
type StudentStatistics struct {
	Student        StudentDetail `json:"student"`
	TotalCount     int           `json:"total_count"`
	PresentCount   int           `json:"present_count"`
	AbsentCount    int           `json:"absent_count"`
	AttendanceRate float64       `json:"attendance_rate"`
	Talent         int           `json:"talent"`
}

// PeriodStatistics summarises attendance between two dates.
type PeriodStatistics struct {
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	TotalCount     int     `json:"total_count"`
	PresentCount   int     `json:"present_count"`
	AbsentCount    int     `json:"absent_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// GroupStatistics compares attendance and talent across one grade or
// department.
type GroupStatistics struct {
	Group          string  `db:"grp" json:"group"`
	StudentCount   int     `db:"student_count" json:"student_count"`
	PresentCount   int     `db:"present_count" json:"present_count"`
	TotalCount     int     `db:"total_count" json:"total_count"`
	AttendanceRate float64 `db:"-" json:"attendance_rate"`
	TotalTalent    int     `db:"total_talent" json:"total_talent"`
}

// TalentDistributionRow buckets transaction amounts by type.
type TalentDistributionRow struct {
	Type        TalentTransactionType `db:"type" json:"type"`
	Count       int                   `db:"count" json:"count"`
	TotalAmount int                   `db:"total_amount" json:"total_amount"`
}

// ExportRow is one flattened line of the full-dataset export.
type ExportRow struct {
	StudentName    string `db:"student_name"`
	Grade          string `db:"grade"`
	DepartmentName string `db:"department_name"`
	Date           string `db:"date"`
	Type           string `db:"type"`
	Status         string `db:"status"`
	TalentGiven    int    `db:"talent_given"`
	Talent         int    `db:"talent"`
}
