package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/aggregate"
	"github.com/loykin/recbridge/internal/auth"
)

type createRoomReq struct {
	RoomID     int64 `json:"room_id" binding:"required"`
	AutoRecord *bool `json:"auto_record"`
}

func (r *Router) handleCreateRoom(c *gin.Context) {
	var req createRoomReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	autoRecord := true
	if req.AutoRecord != nil {
		autoRecord = *req.AutoRecord
	}
	res, err := r.svc.CreateRoom(c.Request.Context(), auth.Identity(c), f, req.RoomID, autoRecord)
	if err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dataResp{Data: res.Data})
}

// roomAction factors the shared shape of the single-room fan-out endpoints.
func (r *Router) roomAction(c *gin.Context, run func(ctx context.Context, caller string, f aggregate.Filter, roomID int64) (*aggregate.Result, error)) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	res, err := run(c.Request.Context(), auth.Identity(c), f, roomID)
	if err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dataResp{Data: res.Data})
}

func (r *Router) handleDeleteRoom(c *gin.Context) { r.roomAction(c, r.svc.DeleteRoom) }
func (r *Router) handleStart(c *gin.Context)      { r.roomAction(c, r.svc.StartRecording) }
func (r *Router) handleStop(c *gin.Context)       { r.roomAction(c, r.svc.StopRecording) }
func (r *Router) handleSplit(c *gin.Context)      { r.roomAction(c, r.svc.SplitRecording) }
func (r *Router) handleRefresh(c *gin.Context)    { r.roomAction(c, r.svc.RefreshRoom) }
func (r *Router) handleGetConfig(c *gin.Context)  { r.roomAction(c, r.svc.GetRoomConfig) }
func (r *Router) handleGetStats(c *gin.Context)   { r.roomAction(c, r.svc.GetRoomStats) }
func (r *Router) handleGetStatus(c *gin.Context)  { r.roomAction(c, r.svc.GetRoomStatus) }

func (r *Router) handleUpdateConfig(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	var cfg map[string]any
	if err := c.ShouldBindJSON(&cfg); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	res, err := r.svc.UpdateRoomConfig(c.Request.Context(), auth.Identity(c), f, roomID, cfg)
	if err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dataResp{Data: res.Data})
}

type batchRoomsReq struct {
	RoomIDs    []int64 `json:"room_ids" binding:"required"`
	AutoRecord *bool   `json:"auto_record"`
}

func (r *Router) handleBatchCreateRooms(c *gin.Context) {
	var req batchRoomsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	autoRecord := true
	if req.AutoRecord != nil {
		autoRecord = *req.AutoRecord
	}
	res := r.svc.BatchCreateRooms(c.Request.Context(), auth.Identity(c), f, req.RoomIDs, autoRecord)
	writeJSON(c, http.StatusOK, res)
}

func (r *Router) handleBatchDeleteRooms(c *gin.Context) {
	var req batchRoomsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	res := r.svc.BatchDeleteRooms(c.Request.Context(), auth.Identity(c), f, req.RoomIDs)
	writeJSON(c, http.StatusOK, res)
}
