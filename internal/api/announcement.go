package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mutolaa/internal/misc"
	"mutolaa/internal/model"
	"mutolaa/internal/stats"
)

type announcementRequest struct {
	Message        string `json:"message"`
	MessageType    string `json:"message_type"`
	TargetAudience string `json:"target_audience"`
	PinMessage     bool   `json:"pin_message"`
	// nil means everyone is notified
	NotifyAll *bool `json:"notify_all"`
}

// AnnouncementCreate queues an announcement for the dispatcher
func AnnouncementCreate(ctx *gin.Context) {
	request := &announcementRequest{}
	if err := ctx.ShouldBindJSON(request); err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "cannot unmarshal JSON of request: "+err.Error())
		return
	}
	announcement := &model.Announcement{
		Message:        request.Message,
		MessageType:    request.MessageType,
		TargetAudience: request.TargetAudience,
		PinMessage:     request.PinMessage,
		NotifyAll:      request.NotifyAll == nil || *request.NotifyAll,
	}
	if value := ctx.Query("admin_id"); value != "" {
		adminID, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			misc.ReturnStandardError(ctx, http.StatusBadRequest, "admin_id must be an integer")
			return
		}
		announcement.CreatedBy = &adminID
	}
	if err := model.CreateAnnouncement(ctx.MustGet("DB").(*gorm.DB), announcement); err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Announcement created", "id": announcement.ID})
}

func AnnouncementList(ctx *gin.Context) {
	announcements, err := model.ListAnnouncements(ctx.MustGet("DB").(*gorm.DB), 20)
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, announcements)
}

func AnnouncementMarkSent(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		misc.ReturnStandardError(ctx, http.StatusBadRequest, "announcement id must be an integer")
		return
	}
	db := ctx.MustGet("DB").(*gorm.DB)
	announcement, err := model.FindAnnouncement(db, uint(id))
	if err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	service := ctx.MustGet("Stats").(*stats.Service)
	if err := announcement.MarkSent(db, service.Now()); err != nil {
		misc.ReturnModelError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Announcement marked as sent", "id": announcement.ID, "sent_at": announcement.SentAt})
}
