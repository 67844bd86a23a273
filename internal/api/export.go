package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"mutolaa/internal/misc"
	"mutolaa/internal/model"
)

const usersSheet = "Users"

var usersHeader = []interface{}{
	"ID", "Telegram ID", "Username", "First name", "Last name", "Status",
	"Total pages", "Current streak", "Longest streak", "Books", "Daily goal",
	"Monthly goal", "Reminder", "Last active", "Joined",
}

func usersWorkbook(users []*model.User) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(usersSheet, "A1", &usersHeader); err != nil {
		return nil, err
	}
	for i, user := range users {
		username, lastName := "", ""
		if user.Username != nil {
			username = *user.Username
		}
		if user.LastName != nil {
			lastName = *user.LastName
		}
		row := []interface{}{
			user.ID, user.TelegramID, username, user.FirstName, lastName, user.Status,
			user.TotalPages, user.CurrentStreak, user.LongestStreak, user.BooksCompleted, user.DailyGoal,
			user.MonthlyGoal, user.ReminderTime,
			user.LastActive.Format("2006-01-02 15:04"), user.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(usersSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// UserExport streams the filtered user list as an xlsx workbook
func UserExport(ctx *gin.Context) {
	filter, ok := userFilter(ctx)
	if !ok {
		return
	}
	users, err := model.ListUsers(ctx.MustGet("DB").(*gorm.DB), filter)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	f, err := usersWorkbook(users)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusInternalServerError, "cannot build workbook: "+err.Error())
		return
	}
	defer f.Close()
	ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "users.xlsx"))
	ctx.Status(http.StatusOK)
	if err := f.Write(ctx.Writer); err != nil {
		ctx.Error(err)
	}
}
