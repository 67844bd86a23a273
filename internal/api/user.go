package api

import (
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"

	"mutolaa/internal/misc"
	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

type userCreateRequest struct {
	TelegramID int64   `json:"telegram_id" binding:"required"`
	Username   *string `json:"username"`
	FirstName  string  `json:"first_name"`
	LastName   *string `json:"last_name"`
}

type reminderTarget struct {
	TelegramID   int64  `json:"telegram_id"`
	FirstName    string `json:"first_name"`
	ReminderTime string `json:"reminder_time"`
}

// telegramIDQuery reads the mandatory telegram_id query parameter
func telegramIDQuery(ctx *gin.Context) (int64, bool) {
	telegramID, err := strconv.ParseInt(ctx.Query("telegram_id"), 10, 64)
	if err != nil || telegramID == 0 {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "telegram_id query parameter must be an integer")
		return 0, false
	}
	return telegramID, true
}

// UserCreate registers a user; calling it again for the same telegram id returns the same user
func UserCreate(ctx *gin.Context) {
	request := &userCreateRequest{}
	if err := ctx.ShouldBindJSON(request); err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "cannot unmarshal JSON of request: "+err.Error())
		return
	}
	db := ctx.MustGet("DB").(*gorm.DB)
	service := ctx.MustGet("Stats").(*stats.Service)
	user, err := model.EnsureUser(db, &model.User{
		TelegramID: request.TelegramID,
		Username:   request.Username,
		FirstName:  request.FirstName,
		LastName:   request.LastName,
	}, service.Now())
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func UserGetByTelegram(ctx *gin.Context) {
	telegramID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "telegram id must be an integer")
		return
	}
	user, err := model.FindUserByTelegramID(ctx.MustGet("DB").(*gorm.DB), telegramID)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func userFilter(ctx *gin.Context) (model.UserFilter, bool) {
	filter := model.UserFilter{Search: ctx.Query("search"), Status: ctx.Query("status")}
	if filter.Status != "" {
		if err := model.ValidateStatus(filter.Status); err != nil {
			misc.ReturnModelError(ctx, err)
			return filter, false
		}
	}
	if limit := ctx.Query("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil {
			misc.ReturnStandardError(ctx, http.StatusBadRequest, "limit must be an integer")
			return filter, false
		}
		filter.Limit = value
	}
	return filter, true
}

func UserList(ctx *gin.Context) {
	filter, ok := userFilter(ctx)
	if !ok {
		return
	}
	users, err := model.ListUsers(ctx.MustGet("DB").(*gorm.DB), filter)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, users)
}

// UsersNeedReminder lists users whose reminder time is the current minute
func UsersNeedReminder(ctx *gin.Context) {
	service := ctx.MustGet("Stats").(*stats.Service)
	users, err := model.UsersWithReminderAt(ctx.MustGet("DB").(*gorm.DB), service.Now().Format("15:04"))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	targets := make([]reminderTarget, 0, len(users))
	for _, user := range users {
		targets = append(targets, reminderTarget{
			TelegramID:   user.TelegramID,
			FirstName:    user.FirstName,
			ReminderTime: user.ReminderTime,
		})
	}
	ctx.JSON(http.StatusOK, targets)
}

// UserStatusUpdate changes the status of the user with internal id :id
func UserStatusUpdate(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "user id must be an integer")
		return
	}
	db := ctx.MustGet("DB").(*gorm.DB)
	user, err := model.FindUser(db, uint(id))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	if err := user.SetStatus(db, ctx.Query("status")); err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Status updated", "id": user.ID, "status": ctx.Query("status")})
}

// integralNumbers rejects JSON numbers with a fraction where an integer is expected
func integralNumbers(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.Float64 {
		return data, nil
	}
	if to.Kind() == reflect.Ptr {
		to = to.Elem()
	}
	if to.Kind() == reflect.Int {
		if value := data.(float64); value != math.Trunc(value) {
			return nil, fmt.Errorf("%v is not an integer", value)
		}
	}
	return data, nil
}

func decodeUserFields(raw map[string]interface{}) (*model.UserFields, error) {
	fields := &model.UserFields{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  integralNumbers,
		ErrorUnused: true,
		Result:      fields,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return fields, nil
}

// UserFieldsUpdate applies a partial settings update to the user with telegram id :id
func UserFieldsUpdate(ctx *gin.Context) {
	telegramID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "telegram id must be an integer")
		return
	}
	raw := map[string]interface{}{}
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "cannot unmarshal JSON of request: "+err.Error())
		return
	}
	fields, err := decodeUserFields(raw)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "illegal fields: "+err.Error())
		return
	}
	db := ctx.MustGet("DB").(*gorm.DB)
	user, err := model.FindUserByTelegramID(db, telegramID)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	if err := user.UpdateFields(db, fields); err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}
