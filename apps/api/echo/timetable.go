package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KrossV2/progresspace-app-sub001/core"
	"github.com/KrossV2/progresspace-app-sub001/core/timetable"
)

const calendarContentType = "text/calendar; charset=utf-8"

type timetableApi struct {
	svc      *timetable.Service
	validate *validator.Validate
	conf     core.TimetableConfig
	metrics  *metrics
}

func registerTimetableAPI(g *echo.Group, api timetableApi) {
	tg := g.Group("/timetable")

	tg.GET("/entries", api.query)
	tg.POST("/entries", api.create)
	tg.POST("/conflicts", api.checkConflicts)
	tg.GET("/occurrences", api.occurrences)
	tg.GET("/calendar.ics", api.calendar)
	tg.GET("/load", api.load)

	// detail endpoints
	dg := tg.Group("/entries/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.replace)
	dg.DELETE("", api.destroy)
}

// Helpers

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func forceParam(ctx echo.Context) (bool, error) {
	val := ctx.QueryParam("force")
	if val == "" {
		return false, nil
	}
	force, err := strconv.ParseBool(val)
	if err != nil {
		return false, core.NewValidationError(err, core.FieldError{Field: "force", Error: "must be true or false"})
	}
	return force, nil
}

func scopeParam(ctx echo.Context) (timetable.Scope, error) {
	var filter timetable.QueryFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &filter); err != nil {
		return timetable.Scope{}, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	return filter.Scope()
}

// termParam reads the `from` and `to` dates, falling back to the configured term.
func (api *timetableApi) termParam(ctx echo.Context) (timetable.Term, error) {
	from, to := core.CleanString(ctx.QueryParam("from")), core.CleanString(ctx.QueryParam("to"))
	if from == "" {
		from = api.conf.TermStart
	}
	if to == "" {
		to = api.conf.TermEnd
	}
	var flds []core.FieldError
	if from == "" {
		flds = append(flds, core.FieldError{Field: "from", Error: "this field is required"})
	}
	if to == "" {
		flds = append(flds, core.FieldError{Field: "to", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return timetable.Term{}, core.NewValidationError(nil, flds...)
	}

	term, err := timetable.NewTerm(from, to, api.conf.Location())
	if err != nil {
		return timetable.Term{}, core.NewValidationError(err)
	}
	return term, nil
}

func (api *timetableApi) bindEntry(ctx echo.Context) (timetable.Entry, error) {
	var data timetable.EntryInput
	if err := ctx.Bind(&data); err != nil {
		return timetable.Entry{}, errors.Wrap(err, "binding to EntryInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return timetable.Entry{}, err
	}
	return data.Entry()
}

func (api *timetableApi) recordWrite(op string, force bool, err error) {
	var outcome string
	switch {
	case err == nil && force:
		outcome = outcomeForced
	case err == nil:
		outcome = outcomeAccepted
	case errors.Is(err, timetable.ErrStaleRevision):
		outcome = outcomeStale
	default:
		if _, ok := timetable.AsConflictError(err); !ok {
			return
		}
		outcome = outcomeConflict
	}
	api.metrics.write(op, outcome)
}

// Handlers

func (api *timetableApi) query(ctx echo.Context) error {
	scope, err := scopeParam(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.List(ctx.Request().Context(), scope)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []timetable.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *timetableApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	entry, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *timetableApi) create(ctx echo.Context) error {
	force, err := forceParam(ctx)
	if err != nil {
		return err
	}
	candidate, err := api.bindEntry(ctx)
	if err != nil {
		return err
	}

	entry, err := api.svc.Create(ctx.Request().Context(), candidate, force)
	api.recordWrite("create", force, err)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *timetableApi) replace(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	force, err := forceParam(ctx)
	if err != nil {
		return err
	}
	candidate, err := api.bindEntry(ctx)
	if err != nil {
		return err
	}

	entry, err := api.svc.Replace(ctx.Request().Context(), id, candidate, force)
	api.recordWrite("replace", force, err)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *timetableApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timetableApi) checkConflicts(ctx echo.Context) error {
	var data timetable.CheckInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckInput")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}
	candidate, err := data.Entry()
	if err != nil {
		return err
	}

	conflicts, err := api.svc.Check(ctx.Request().Context(), candidate, data.ExcludeID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"conflicts": conflicts})
}

func (api *timetableApi) occurrences(ctx echo.Context) error {
	scope, err := scopeParam(ctx)
	if err != nil {
		return err
	}
	term, err := api.termParam(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.List(ctx.Request().Context(), scope)
	if err != nil {
		return err
	}

	occs, err := timetable.Occurrences(entries, term, api.conf.Location())
	if err != nil {
		return err
	}
	if occs == nil {
		occs = []timetable.Occurrence{}
	}
	return ctx.JSON(http.StatusOK, occs)
}

func (api *timetableApi) calendar(ctx echo.Context) error {
	scope, err := scopeParam(ctx)
	if err != nil {
		return err
	}
	term, err := api.termParam(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.List(ctx.Request().Context(), scope)
	if err != nil {
		return err
	}

	data, err := timetable.ExportICal(entries, term, api.conf.Location(), api.conf.CalendarName)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="timetable.ics"`)
	return ctx.Blob(http.StatusOK, calendarContentType, data)
}

func (api *timetableApi) load(ctx echo.Context) error {
	scope, err := scopeParam(ctx)
	if err != nil {
		return err
	}
	loads, err := api.svc.TeacherLoad(ctx.Request().Context(), scope)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, loads)
}
