package api

import "github.com/gin-gonic/gin"

// Routes mounts the REST API on apiRouter. admin guards dashboard-only endpoints.
func Routes(apiRouter *gin.RouterGroup, admin gin.HandlerFunc) {
	apiRouter.GET("/stats", StatsGet)
	apiRouter.GET("/leaderboard", LeaderboardGet)
	apiRouter.GET("/report/:period", ReportGet)
	apiRouter.GET("/activity/weekly", ActivityWeeklyGet)

	logRouter := apiRouter.Group("/reading-logs")
	{
		logRouter.POST("", ReadingLogCreate)
		logRouter.PUT("/:date", ReadingLogUpdate)
		logRouter.DELETE("/:date", ReadingLogDelete)
	}

	userRouter := apiRouter.Group("/users")
	{
		userRouter.POST("", UserCreate)
		userRouter.GET("", UserList)
		userRouter.GET("/export", admin, UserExport)
		userRouter.GET("/need-reminder", UsersNeedReminder)
		userRouter.GET("/by-telegram/:id", UserGetByTelegram)
		// :id is the internal user id here
		userRouter.PUT("/:id/status", admin, UserStatusUpdate)
		// and the telegram id here
		userRouter.PUT("/:id/update", UserFieldsUpdate)
	}

	announcementRouter := apiRouter.Group("/announcements")
	{
		announcementRouter.GET("", AnnouncementList)
		announcementRouter.POST("", admin, AnnouncementCreate)
		announcementRouter.PUT("/:id/mark-sent", admin, AnnouncementMarkSent)
	}
}
