package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/backend"
)

func (r *Router) handleListAll(c *gin.Context) {
	rooms := r.svc.ListRooms(c.Request.Context(), backend.VendorAny)
	writeJSON(c, http.StatusOK, dataResp{Data: rooms})
}

// handleDataTarget serves both GET /data/{roomID} and GET /data/{vendor}:
// a numeric target is a room lookup, anything else must parse as a vendor.
func (r *Router) handleDataTarget(c *gin.Context) {
	target := c.Param("target")
	if roomID, err := strconv.ParseInt(target, 10, 64); err == nil {
		r.lookupRoom(c, roomID, backend.VendorAny)
		return
	}
	vendor, err := backend.ParseVendor(target)
	if err != nil || vendor == backend.VendorAny {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "target must be a room ID or a vendor name"})
		return
	}
	rooms := r.svc.ListRooms(c.Request.Context(), vendor)
	writeJSON(c, http.StatusOK, dataResp{Data: rooms})
}

func (r *Router) handleVendorRoom(c *gin.Context) {
	vendor, err := backend.ParseVendor(c.Param("target"))
	if err != nil || vendor == backend.VendorAny {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "vendor must be recheme or blrec"})
		return
	}
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}
	r.lookupRoom(c, roomID, vendor)
}

func (r *Router) lookupRoom(c *gin.Context, roomID int64, vendor backend.Vendor) {
	rooms, err := r.svc.LookupRoom(c.Request.Context(), roomID, vendor)
	if err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, dataResp{Data: rooms})
}
