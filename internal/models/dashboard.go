package models

import "time"

// DashboardSummary is the admin landing page snapshot.
type DashboardSummary struct {
	PendingEditRequests      int       `db:"pending_edit_requests" json:"pending_edit_requests"`
	PendingExtensionRequests int       `db:"pending_extension_requests" json:"pending_extension_requests"`
	LecturesToday            int       `db:"lectures_today" json:"lectures_today"`
	UnmarkedPastLectures     int       `db:"unmarked_past_lectures" json:"unmarked_past_lectures"`
	ActiveTeachers           int       `db:"active_teachers" json:"active_teachers"`
	Students                 int       `db:"students" json:"students"`
	GeneratedAt              time.Time `db:"-" json:"generated_at"`
}
