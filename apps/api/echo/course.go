package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/watch"
)

type courseApi struct {
	svc      *course.Service
	gate     *watch.Gate
	resolver *course.DurationResolver
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service, gate *watch.Gate, resolver *course.DurationResolver) {
	api := courseApi{svc: svc, gate: gate, resolver: resolver}

	cg := g.Group("/courses", jwt)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/videos", api.videos)
	cg.GET("/:id/purchase", api.purchaseStatus)

	vg := g.Group("/videos", jwt)
	vg.GET("/:id/authorize", api.authorize)
	vg.POST("/play-time", api.saveDuration)
	if api.resolver != nil {
		vg.POST("/:id/resolve-duration", api.resolveDuration)
	}
}

// Handlers

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) videos(ctx echo.Context) error {
	vids, err := api.svc.VideosByCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying course videos")
	}
	if vids == nil {
		vids = []course.Video{}
	}
	return ctx.JSON(http.StatusOK, vids)
}

// purchaseStatus reports whether a member purchased the course.
// "no purchase record" is a 404, distinct from an explicit purchased=false.
func (api *courseApi) purchaseStatus(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}
	memberID := ctx.QueryParam("member_id")
	if memberID == "" {
		memberID = ident.ID
	}
	if err = checkMemberOrAdmin(ctx, memberID); err != nil {
		return err
	}

	purchased, err := api.svc.PurchaseStatus(ctx.Request().Context(), memberID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting purchase status")
	}
	return ctx.JSON(http.StatusOK, PurchaseResponse{Purchased: purchased})
}

// authorize runs the playback access gate for the video and the caller.
// The decision is returned as data; a denial is not an HTTP error.
func (api *courseApi) authorize(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	vid, err := api.svc.GetVideo(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting video")
	}

	courseID := ctx.QueryParam("course_id")
	if courseID == "" {
		courseID = vid.CourseID
	}

	decision := api.gate.Authorize(ctx.Request().Context(), ident, vid, courseID)
	return ctx.JSON(http.StatusOK, decision)
}

func (api *courseApi) saveDuration(ctx echo.Context) error {
	var data course.SaveDuration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveDuration")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.SaveVideoDuration(ctx.Request().Context(), data.VideoID, data.TotalDuration); err != nil {
		return errors.Wrap(err, "saving video duration")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// resolveDuration fetches the video's duration from the external provider
// and persists it (first write wins). A provider miss leaves the duration
// unset and reports zero seconds.
func (api *courseApi) resolveDuration(ctx echo.Context) error {
	vid, err := api.svc.GetVideo(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting video")
	}

	seconds, err := api.resolver.ResolveDuration(ctx.Request().Context(), vid)
	if err != nil {
		return errors.Wrap(err, "resolving video duration")
	}
	return ctx.JSON(http.StatusOK, DurationResponse{TotalDuration: seconds})
}

type (
	PurchaseResponse struct {
		Purchased bool `json:"purchased"`
	}

	DurationResponse struct {
		TotalDuration int `json:"total_duration"`
	}
)
