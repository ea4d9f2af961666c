package query

import (
	"context"
	"math"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// CourseAverage is one course's aggregate over its enrolled students.
type CourseAverage struct {
	CourseID      string  `json:"course_id"`
	CourseName    string  `json:"course_name"`
	StudentCount  int     `json:"student_count"`
	TotalPoints   int     `json:"total_points"`
	AveragePoints float64 `json:"average_points"`
}

// CourseAverageHandler computes the per-course balance averages shown on
// the program dashboard.
type CourseAverageHandler struct {
	students student.Repository
	groups   student.GroupRepository
}

// NewCourseAverageHandler creates a CourseAverageHandler.
func NewCourseAverageHandler(students student.Repository, groups student.GroupRepository) *CourseAverageHandler {
	return &CourseAverageHandler{
		students: students,
		groups:   groups,
	}
}

// GetCourseAverages returns one row per course, ordered as the courses are.
// A course with no students averages zero rather than dividing by zero.
func (h *CourseAverageHandler) GetCourseAverages(ctx context.Context) ([]CourseAverage, error) {
	courses, err := h.groups.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	averages := make([]CourseAverage, 0, len(courses))
	for _, c := range courses {
		enrolled, err := h.students.List(ctx, student.ListFilter{CourseID: c.ID})
		if err != nil {
			return nil, err
		}

		row := CourseAverage{
			CourseID:     c.ID,
			CourseName:   c.Name,
			StudentCount: len(enrolled),
		}
		for _, s := range enrolled {
			row.TotalPoints += int(s.Point)
		}
		if row.StudentCount > 0 {
			row.AveragePoints = round2(float64(row.TotalPoints) / float64(row.StudentCount))
		}

		averages = append(averages, row)
	}
	return averages, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
