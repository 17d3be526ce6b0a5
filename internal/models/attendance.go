package models

import "time"

// AttendanceStatus is the mark given to a student for one lecture.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceSick    AttendanceStatus = "SICK"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

// AttendanceRecord is unique per lecture and student.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	LectureID string           `db:"lecture_id" json:"lecture_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
}

// AttendanceRow is a student of the lecture's section with their mark, if any.
type AttendanceRow struct {
	StudentID  string            `db:"student_id" json:"student_id"`
	RollNumber string            `db:"roll_number" json:"roll_number"`
	FullName   string            `db:"full_name" json:"full_name"`
	RecordID   *string           `db:"record_id" json:"record_id,omitempty"`
	Status     *AttendanceStatus `db:"status" json:"status,omitempty"`
	MarkedAt   *time.Time        `db:"marked_at" json:"marked_at,omitempty"`
}

// AttendanceSheet is the marking view of a lecture.
type AttendanceSheet struct {
	Lecture LectureDetail   `json:"lecture"`
	Rows    []AttendanceRow `json:"rows"`
	CanMark bool            `json:"can_mark"`
	Summary map[string]int  `json:"summary"`
	Marked  int             `json:"marked_count"`
}
