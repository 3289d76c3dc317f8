package models

import "time"

// TalentTransactionType tags an entry in the talent audit log.
type TalentTransactionType string

const (
	TalentTransactionEarn   TalentTransactionType = "earn"
	TalentTransactionSpend  TalentTransactionType = "spend"
	TalentTransactionAdjust TalentTransactionType = "adjust"
)

// TalentTransaction is one append-only entry in a student's talent ledger.
// Rows are only ever inserted; the student's cached balance is the sum of
// their amounts.
type TalentTransaction struct {
	ID           string                `db:"id" json:"id"`
	StudentID    string                `db:"student_id" json:"student_id"`
	Type         TalentTransactionType `db:"type" json:"type"`
	Amount       int                   `db:"amount" json:"amount"`
	Reason       string                `db:"reason" json:"reason"`
	AttendanceID *string               `db:"attendance_id" json:"attendance_id,omitempty"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`
}

// TalentTransactionFilter scopes transaction-log queries.
type TalentTransactionFilter struct {
	StudentID   string
	StudentName string
	DateFrom    *time.Time
	DateTo      *time.Time
}

// TalentSummary pairs a student with their transaction history.
type TalentSummary struct {
	Student      StudentDetail       `json:"student"`
	Transactions []TalentTransaction `json:"transactions"`
}

// TalentAggregate summarises balances over a group of students.
type TalentAggregate struct {
	Students      []StudentDetail `json:"students"`
	TotalTalent   int             `json:"total_talent"`
	AverageTalent float64         `json:"average_talent"`
	StudentCount  int             `json:"student_count"`
}
