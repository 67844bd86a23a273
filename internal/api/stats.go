package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mutolaa/internal/misc"
	"mutolaa/internal/stats"
)

func StatsGet(ctx *gin.Context) {
	service := ctx.MustGet("Stats").(*stats.Service)
	result, err := service.Stats(ctx.Request.Context())
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func LeaderboardGet(ctx *gin.Context) {
	period, err := stats.ParsePeriod(ctx.DefaultQuery("period", string(stats.PeriodWeek)))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	limit := stats.DefaultLimit
	if value := ctx.Query("limit"); value != "" {
		if limit, err = strconv.Atoi(value); err != nil {
			misc.ReturnStandardError(ctx, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	entries, err := service.Leaderboard(ctx.Request.Context(), period, limit)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, entries)
}

func ReportGet(ctx *gin.Context) {
	period, err := stats.ParseReportPeriod(ctx.Param("period"))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	report, err := service.Report(ctx.Request.Context(), period)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, report.Rows)
}

func ActivityWeeklyGet(ctx *gin.Context) {
	service := ctx.MustGet("Stats").(*stats.Service)
	activity, err := service.WeeklyActivity(ctx.Request.Context())
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, activity)
}
