package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/KrossV2/progresspace-app-sub001/core/report"
)

func Test_reportApi(t *testing.T) {
	app := setup(t)

	records := []report.AttendanceRecord{
		{StudentID: "S1", Date: "2024-09-02", Status: report.Present},
		{StudentID: "S2", Date: "2024-09-02", Status: report.Late},
		{StudentID: "S1", Date: "2024-09-03", Status: report.Absent},
		{StudentID: "S2", Date: "2024-09-03", Status: report.Excused},
	}

	app.runTests(t, []httpTest{
		{
			name: "attendance", method: http.MethodPost, path: "/v1/reports/attendance",
			body:     marchallObj(t, report.AttendanceRequest{Records: records}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echo.Map{
				"summary": report.AttendanceSummary{
					Total: 4,
					Counts: map[report.AttendanceStatus]int{
						report.Present: 1, report.Absent: 1, report.Late: 1, report.Excused: 1,
					},
					Percentages: map[report.AttendanceStatus]float64{
						report.Present: 25, report.Absent: 25, report.Late: 25, report.Excused: 25,
					},
					Rate: 50,
				},
				"daily_rates": map[string]float64{"2024-09-02": 100, "2024-09-03": 0},
			}),
		},
		{
			name: "attendance without records", method: http.MethodPost, path: "/v1/reports/attendance",
			body:     []byte(`{"records": []}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"records": "records must contain at least 1 item"}),
		},
		{
			name: "unknown status", method: http.MethodPost, path: "/v1/reports/attendance",
			body:     []byte(`{"records": [{"student_id": "S1", "date": "2024-09-02", "status": "sick"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "must be one of present, absent, late or excused"}),
		},
		{
			name: "bad date", method: http.MethodPost, path: "/v1/reports/attendance",
			body:     []byte(`{"records": [{"student_id": "S1", "date": "02/09/2024", "status": "present"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a date in the YYYY-MM-DD format"}),
		},
		{
			name: "grades", method: http.MethodPost, path: "/v1/reports/grades",
			body: marchallObj(t, report.GradesRequest{Grades: []report.Grade{
				{Label: "quiz", Score: 8, MaxScore: 10, Weight: 1},
				{Label: "exam", Score: 60, MaxScore: 100, Weight: 3},
			}}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, report.GradesSummary{Count: 2, Average: 65}),
		},
		{
			name: "score above max", method: http.MethodPost, path: "/v1/reports/grades",
			body: marchallObj(t, report.GradesRequest{Grades: []report.Grade{
				{Label: "quiz", Score: 12, MaxScore: 10, Weight: 1},
			}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "quiz: score 12.00 is outside [0, 10.00]: invalid grade"}),
		},
		{
			name: "no weight", method: http.MethodPost, path: "/v1/reports/grades",
			body: marchallObj(t, report.GradesRequest{Grades: []report.Grade{
				{Label: "quiz", Score: 5, MaxScore: 10},
			}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: report.ErrNoWeight.Error()}),
		},
	})
}
