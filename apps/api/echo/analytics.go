package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/analytics"
	"github.com/trezcool/alama/core/assistant"
	"github.com/trezcool/alama/core/predict"
)

type analyticsApi struct {
	svc          *analytics.Service
	predictSvc   *predict.Service
	assistantSvc *assistant.Service
	validate     *validator.Validate
	logger       core.Logger
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := analyticsApi{
		svc:          deps.AnalyticsSvc,
		predictSvc:   deps.PredictSvc,
		assistantSvc: deps.AssistantSvc,
		validate:     deps.Validate,
		logger:       deps.Logger,
	}

	ag := g.Group("/analytics", jwt, adminMiddleware())
	ag.GET("", api.summary)
	ag.GET("/predictions", api.predictions)
	ag.POST("/assistant", api.ask)
}

// summary falls back to the empty summary when the GPAs cannot be loaded.
func (api *analyticsApi) summary(ctx echo.Context) error {
	summary, err := api.svc.Summary(ctx.Request().Context())
	if err != nil {
		api.logger.Warn("analytics summary unavailable", err)
		summary = analytics.Summarize(nil)
	}
	return ctx.JSON(http.StatusOK, summary)
}

// predictions falls back to an empty table when the score rows cannot be loaded.
func (api *analyticsApi) predictions(ctx echo.Context) error {
	filter := predict.Filter{SubjectID: queryID(ctx, "subject_id")}

	rows, err := api.predictSvc.Analyze(ctx.Request().Context(), filter)
	if err != nil {
		api.logger.Warn("predictive table unavailable", err)
		rows = nil
	}
	if rows == nil {
		rows = []predict.Row{}
	}
	return ctx.JSON(http.StatusOK, rows)
}

func (api *analyticsApi) ask(ctx echo.Context) error {
	var data assistant.Question
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Question")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.assistantSvc.Ask(ctx.Request().Context(), data))
}
