package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

type sheetReaderStub struct {
	sheet *models.AttendanceSheet
	err   error
}

func (s sheetReaderStub) Sheet(context.Context, Actor, string) (*models.AttendanceSheet, error) {
	return s.sheet, s.err
}

func sampleSheet() *models.AttendanceSheet {
	present := models.AttendancePresent
	marked := time.Date(2025, 1, 8, 9, 5, 0, 0, time.UTC)
	return &models.AttendanceSheet{
		Lecture: models.LectureDetail{
			Lecture:     models.Lecture{ID: "lecture-1", StartsAt: time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC), Kind: models.LectureKindRegular, Status: models.LectureStatusLocked},
			CourseCode:  "CS 101",
			CourseTitle: "Programming Fundamentals",
			SectionName: "A",
		},
		Rows: []models.AttendanceRow{
			{StudentID: "s-1", RollNumber: "BSCS-001", FullName: "Ayesha Khan", Status: &present, MarkedAt: &marked},
			{StudentID: "s-2", RollNumber: "BSCS-002", FullName: "Bilal Ahmed"},
		},
		Marked: 1,
	}
}

func TestReportServiceExportCSV(t *testing.T) {
	svc := NewReportService(sheetReaderStub{sheet: sampleSheet()}, time.FixedZone("PKT", 5*60*60), nil)

	file, err := svc.ExportLecture(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "lecture-1", "")
	require.NoError(t, err)
	assert.Equal(t, "attendance_CS_101_20250108_1400.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")
	body := string(file.Payload)
	assert.Contains(t, body, "Roll Number")
	assert.Contains(t, body, "BSCS-001")
	assert.Contains(t, body, "PRESENT")
}

func TestReportServiceExportPDF(t *testing.T) {
	svc := NewReportService(sheetReaderStub{sheet: sampleSheet()}, nil, nil)

	file, err := svc.ExportLecture(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, "lecture-1", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, len(file.Payload) > 4)
	assert.Equal(t, "%PDF", string(file.Payload[:4]))
}

func TestReportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewReportService(sheetReaderStub{sheet: sampleSheet()}, nil, nil)
	_, err := svc.ExportLecture(context.Background(), Actor{}, "lecture-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServicePassesAccessErrors(t *testing.T) {
	svc := NewReportService(sheetReaderStub{err: appErrors.Clone(appErrors.ErrForbidden, "nope")}, nil, nil)
	_, err := svc.ExportLecture(context.Background(), Actor{ID: "t-2", Role: models.RoleTeacher}, "lecture-1", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
