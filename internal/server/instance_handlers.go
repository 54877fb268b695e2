package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loykin/recbridge/internal/backend"
	"github.com/loykin/recbridge/internal/registry"
)

type instanceReq struct {
	Name   string `json:"name" binding:"required"`
	Vendor string `json:"vendor" binding:"required"`
	URL    string `json:"url" binding:"required"`
	Manage *bool  `json:"manage"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
	Key    string `json:"key"`
}

func (req instanceReq) instance() (backend.Instance, error) {
	vendor, err := backend.ParseVendor(req.Vendor)
	if err != nil {
		return backend.Instance{}, err
	}
	manage := true
	if req.Manage != nil {
		manage = *req.Manage
	}
	return backend.Instance{
		Name:     req.Name,
		Vendor:   vendor,
		BaseURL:  req.URL,
		Manage:   manage,
		Username: req.User,
		Password: req.Pass,
		APIKey:   req.Key,
	}, nil
}

// instanceView is the read representation: identity without credentials.
type instanceView struct {
	Name   string         `json:"name"`
	Vendor backend.Vendor `json:"vendor"`
	URL    string         `json:"url"`
	Manage bool           `json:"manage"`
}

func (r *Router) handleListInstances(c *gin.Context) {
	vendor, err := backend.ParseVendor(c.Query("vendor"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	insts := r.svc.Registry().List(vendor, c.Query("name"))
	views := make([]instanceView, 0, len(insts))
	for _, inst := range insts {
		views = append(views, instanceView{
			Name:   inst.Name,
			Vendor: inst.Vendor,
			URL:    inst.BaseURL,
			Manage: inst.Manage,
		})
	}
	writeJSON(c, http.StatusOK, dataResp{Data: views})
}

func (r *Router) handleInstanceStatuses(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	statuses := r.svc.InstanceStatuses(c.Request.Context(), f)
	writeJSON(c, http.StatusOK, dataResp{Data: statuses})
}

func (r *Router) handleAddInstance(c *gin.Context) {
	var req instanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	inst, err := req.instance()
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if err := r.svc.AddInstance(inst); err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleRemoveInstance(c *gin.Context) {
	vendor, err := backend.ParseVendor(c.Param("vendor"))
	if err != nil || vendor == backend.VendorAny {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "vendor must be recheme or blrec"})
		return
	}
	if err := r.svc.RemoveInstance(vendor, c.Param("name")); err != nil {
		writeOpError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

type batchAddInstancesReq struct {
	Instances []instanceReq `json:"instances" binding:"required"`
}

func (r *Router) handleBatchAddInstances(c *gin.Context) {
	var req batchAddInstancesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	insts := make([]backend.Instance, 0, len(req.Instances))
	for _, ir := range req.Instances {
		inst, err := ir.instance()
		if err != nil {
			// Let the registry report it as a per-entry failure.
			inst = backend.Instance{Name: ir.Name, BaseURL: ir.URL}
		}
		insts = append(insts, inst)
	}
	writeJSON(c, http.StatusOK, r.svc.BatchAddInstances(insts))
}

type batchRemoveInstancesReq struct {
	Instances []registry.Identity `json:"instances" binding:"required"`
}

func (r *Router) handleBatchRemoveInstances(c *gin.Context) {
	var req batchRemoveInstancesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.svc.BatchRemoveInstances(req.Instances))
}
