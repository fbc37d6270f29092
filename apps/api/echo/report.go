package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core/report"
)

type reportApi struct {
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, validate *validator.Validate) {
	api := reportApi{validate: validate}

	rg := g.Group("/reports")
	rg.POST("/attendance", api.attendance)
	rg.POST("/grades", api.grades)
}

func (api *reportApi) attendance(ctx echo.Context) error {
	var data report.AttendanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	summary, err := report.SummarizeAttendance(data.Records)
	if err != nil {
		return err
	}
	daily, err := report.DailyRates(data.Records)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"summary": summary, "daily_rates": daily})
}

func (api *reportApi) grades(ctx echo.Context) error {
	var data report.GradesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradesRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	avg, err := report.WeightedAverage(data.Grades)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.GradesSummary{Count: len(data.Grades), Average: avg})
}
