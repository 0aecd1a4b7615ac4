package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/study"
	"github.com/trezcool/darasa/core/watch"
)

type watchApi struct {
	svc      *watch.Service
	studySvc *study.Service
}

func registerWatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *watch.Service, studySvc *study.Service) {
	api := watchApi{svc: svc, studySvc: studySvc}

	mg := g.Group("/member-videos", jwt)
	mg.GET("", api.state)
	mg.POST("", api.create)
	mg.PUT("", api.update)
	mg.GET("/watched", api.watched)
	mg.GET("/average", api.average)

	sg := g.Group("/study-tables", jwt)
	sg.POST("", api.createEntry)
	sg.PUT("/today", api.updateToday)
}

// memberAndVideoParams resolves the (member, video) pair from query params,
// defaulting the member to the caller and enforcing member-match-or-admin.
func (api *watchApi) memberAndVideoParams(ctx echo.Context) (memberID, videoID string, err error) {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "getting context identity")
	}
	memberID = ctx.QueryParam("member_id")
	if memberID == "" {
		memberID = ident.ID
	}
	if err = checkMemberOrAdmin(ctx, memberID); err != nil {
		return "", "", err
	}

	videoID = ctx.QueryParam("video_id")
	if videoID == "" {
		return "", "", core.NewValidationError(nil, core.FieldError{Field: "video_id", Error: "this field is required"})
	}
	return memberID, videoID, nil
}

// Handlers

// state never 404s: an absent record reports {exists: false}.
func (api *watchApi) state(ctx echo.Context) error {
	memberID, videoID, err := api.memberAndVideoParams(ctx)
	if err != nil {
		return err
	}

	state, err := api.svc.State(ctx.Request().Context(), memberID, videoID)
	if err != nil {
		return errors.Wrap(err, "getting watch record state")
	}
	return ctx.JSON(http.StatusOK, state)
}

func (api *watchApi) create(ctx echo.Context) error {
	var data watch.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}

	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	if data.MemberID == "" {
		data.MemberID = ident.ID
	}
	if err = data.Validate(); err != nil {
		return err
	}
	if err = checkMemberOrAdmin(ctx, data.MemberID); err != nil {
		return err
	}

	rec, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating watch record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// update applies a study-time delta and/or the one-way watched transition.
func (api *watchApi) update(ctx echo.Context) error {
	memberID, videoID, err := api.memberAndVideoParams(ctx)
	if err != nil {
		return err
	}

	var data watch.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if data.StudySeconds > 0 {
		if err = api.svc.AddStudyTime(reqCtx, memberID, videoID, data.StudySeconds); err != nil {
			return errors.Wrap(err, "adding study time")
		}
	}
	if data.Watched {
		if err = api.svc.MarkWatched(reqCtx, memberID, videoID); err != nil {
			return errors.Wrap(err, "marking watch record watched")
		}
	}

	rec, err := api.svc.Get(reqCtx, memberID, videoID)
	if err != nil {
		return errors.Wrap(err, "getting watch record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *watchApi) watched(ctx echo.Context) error {
	memberID, videoID, err := api.memberAndVideoParams(ctx)
	if err != nil {
		return err
	}

	watched, err := api.svc.Watched(ctx.Request().Context(), memberID, videoID)
	if err != nil {
		return errors.Wrap(err, "getting watched flag")
	}
	return ctx.JSON(http.StatusOK, WatchedResponse{Watched: watched})
}

func (api *watchApi) average(ctx echo.Context) error {
	videoID := ctx.QueryParam("video_id")
	if videoID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "video_id", Error: "this field is required"})
	}

	avg, err := api.svc.AverageStudySeconds(ctx.Request().Context(), videoID)
	if err != nil {
		return errors.Wrap(err, "averaging study time")
	}
	return ctx.JSON(http.StatusOK, AverageResponse{Average: avg})
}

func (api *watchApi) createEntry(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	entry, created, err := api.studySvc.Ensure(ctx.Request().Context(), ident.ID, study.Today())
	if err != nil {
		return errors.Wrap(err, "ensuring study ledger entry")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, entry)
}

func (api *watchApi) updateToday(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data StudyUpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudyUpdateRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	today := study.Today()
	if data.StudySeconds > 0 {
		if err = api.studySvc.AddStudyTime(reqCtx, ident.ID, today, data.StudySeconds); err != nil {
			return errors.Wrap(err, "adding study time")
		}
	}
	if data.Completed {
		if err = api.studySvc.MarkCompleted(reqCtx, ident.ID, today); err != nil {
			return errors.Wrap(err, "marking study ledger entry completed")
		}
	}

	entry, err := api.studySvc.Get(reqCtx, ident.ID, today)
	if err != nil {
		return errors.Wrap(err, "getting study ledger entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

type (
	WatchedResponse struct {
		Watched bool `json:"watched"`
	}

	AverageResponse struct {
		Average float64 `json:"average"`
	}

	StudyUpdateRequest struct {
		StudySeconds int  `json:"study_time" validate:"gte=0"`
		Completed    bool `json:"completed"`
	}
)

func (r *StudyUpdateRequest) Validate() error {
	return core.Validate.Struct(r)
}
