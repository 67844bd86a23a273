package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mutolaa/internal/misc"
	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

type readingLogRequest struct {
	Date  *model.Date `json:"date"`
	Pages *int        `json:"pages"`
}

// logOwner resolves the user named by the telegram_id query parameter
func logOwner(ctx *gin.Context) (*model.User, bool) {
	telegramID, ok := telegramIDQuery(ctx)
	if !ok {
		return nil, false
	}
	user, err := model.FindUserByTelegramID(ctx.MustGet("DB").(*gorm.DB), telegramID)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return nil, false
	}
	return user, true
}

func bindPages(ctx *gin.Context, request *readingLogRequest) bool {
	if err := ctx.ShouldBindJSON(request); err != nil {
		if model.IsValidation(err) {
			misc.ReturnModelError(ctx, err)
		} else {
			misc.ReturnStandardError(ctx, http.StatusBadRequest, "cannot unmarshal JSON of request: "+err.Error())
		}
		return false
	}
	if request.Pages == nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "pages MUST be provided")
		return false
	}
	return true
}

// ReadingLogCreate adds pages to a day; the date defaults to today
func ReadingLogCreate(ctx *gin.Context) {
	user, ok := logOwner(ctx)
	if !ok {
		return
	}
	request := &readingLogRequest{}
	if !bindPages(ctx, request) {
		return
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	now := service.Now()
	date := model.DateOf(now)
	if request.Date != nil {
		date = *request.Date
	}
	log, err := model.AddReadingLog(ctx.MustGet("DB").(*gorm.DB), user, date, *request.Pages, now)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":        "Reading log created",
		"date":           log.Date,
		"pages":          log.Pages,
		"total_pages":    user.TotalPages,
		"current_streak": user.CurrentStreak,
	})
}

func dateParam(ctx *gin.Context) (model.Date, bool) {
	date, err := model.ParseDate(ctx.Param("date"))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return model.Date{}, false
	}
	return date, true
}

func ReadingLogUpdate(ctx *gin.Context) {
	user, ok := logOwner(ctx)
	if !ok {
		return
	}
	date, ok := dateParam(ctx)
	if !ok {
		return
	}
	request := &readingLogRequest{}
	if !bindPages(ctx, request) {
		return
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	log, err := model.UpdateReadingLog(ctx.MustGet("DB").(*gorm.DB), user, date, *request.Pages, service.Now())
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Reading log updated",
		"date":        log.Date,
		"pages":       log.Pages,
		"total_pages": user.TotalPages,
	})
}

func ReadingLogDelete(ctx *gin.Context) {
	user, ok := logOwner(ctx)
	if !ok {
		return
	}
	date, ok := dateParam(ctx)
	if !ok {
		return
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	if err := model.DeleteReadingLog(ctx.MustGet("DB").(*gorm.DB), user, date, service.Now()); err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Reading log deleted",
		"date":        date,
		"total_pages": user.TotalPages,
	})
}
