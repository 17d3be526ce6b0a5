package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
	"github.com/noah-isme/uni-attendance-api/pkg/export"
)

type attendanceSheetReader interface {
	Sheet(ctx context.Context, actor Actor, lectureID string) (*models.AttendanceSheet, error)
}

type sheetExporter interface {
	ContentType() string
	Extension() string
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ReportService renders lecture attendance sheets as downloadable files.
type ReportService struct {
	sheets    attendanceSheetReader
	exporters map[string]sheetExporter
	location  *time.Location
	logger    *zap.Logger
}

// NewReportService registers the csv and pdf exporters.
func NewReportService(sheets attendanceSheetReader, loc *time.Location, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		sheets: sheets,
		exporters: map[string]sheetExporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		location: loc,
		logger:   logger,
	}
}

// ExportLecture renders the attendance sheet of a lecture in format.
func (s *ReportService) ExportLecture(ctx context.Context, actor Actor, lectureID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	sheet, err := s.sheets.Sheet(ctx, actor, lectureID)
	if err != nil {
		return nil, err
	}

	payload, err := exporter.Render(s.buildSheet(sheet))
	if err != nil {
		s.logger.Error("failed to render attendance export", zap.String("lecture_id", lectureID), zap.String("format", format), zap.Error(err))
		return nil, internalError(err, "failed to render export")
	}

	startsAt := sheet.Lecture.StartsAt.In(s.location)
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance_%s_%s.%s", sanitizeFilename(sheet.Lecture.CourseCode), startsAt.Format("20060102_1504"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Payload:     payload,
	}, nil
}

func (s *ReportService) buildSheet(sheet *models.AttendanceSheet) export.Sheet {
	lecture := sheet.Lecture
	headers := []string{"Roll Number", "Name", "Status", "Marked At"}
	rows := make([]map[string]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		status, markedAt := "-", ""
		if row.Status != nil {
			status = string(*row.Status)
		}
		if row.MarkedAt != nil {
			markedAt = row.MarkedAt.In(s.location).Format("2006-01-02 15:04")
		}
		rows = append(rows, map[string]string{
			"Roll Number": row.RollNumber,
			"Name":        row.FullName,
			"Status":      status,
			"Marked At":   markedAt,
		})
	}

	return export.Sheet{
		Title: fmt.Sprintf("%s %s attendance", lecture.CourseCode, lecture.CourseTitle),
		Meta: [][2]string{
			{"Section", lecture.SectionName},
			{"Starts", lecture.StartsAt.In(s.location).Format("2006-01-02 15:04")},
			{"Kind", string(lecture.Kind)},
			{"Status", string(lecture.Status)},
			{"Marked", fmt.Sprintf("%d of %d", sheet.Marked, len(sheet.Rows))},
		},
		Data: export.Dataset{Headers: headers, Rows: rows},
	}
}

func sanitizeFilename(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "lecture"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, v)
}
