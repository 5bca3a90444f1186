package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/dj-metadata-sync/internal/adapter"
	"github.com/jaki95/dj-metadata-sync/internal/dictify"
	"github.com/jaki95/dj-metadata-sync/internal/job"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/syncer"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

// health handles health check requests
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "dj-metadata-sync",
		"tagStore":  s.cfg.TagStore.Type,
	})
}

// startSync validates a sync request and runs it in the background
func (s *Server) startSync(c *gin.Context) {
	var req job.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	supported := adapter.Sinks()
	if req.Command == "import" {
		supported = adapter.Sources()
	}
	if !slices.Contains(supported, req.Adapter) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("%v: cannot %s %q", ErrUnsupportedAdapter, req.Command, req.Adapter),
		})
		return
	}

	if req.Overwrite == "" {
		req.Overwrite = string(syncer.Never)
	}
	mode, err := syncer.ParseMode(req.Overwrite)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	lib, err := library.New(req.Paths, s.cfg.Library.Extensions)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	status, ctx := s.jobManager.CreateJob(req)
	slog.Info("Sync job created", "jobId", status.ID, "command", req.Command, "adapter", req.Adapter)

	go s.runSync(ctx, status.ID, req, mode, lib)

	c.JSON(http.StatusAccepted, SyncResponse{JobID: status.ID, Message: "Sync started"})
}

// getJobStatus handles retrieving the status of a job
func (s *Server) getJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	status, err := s.jobManager.GetJob(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

// cancelJob handles cancelling a job
func (s *Server) cancelJob(c *gin.Context) {
	jobID := c.Param("id")

	if err := s.jobManager.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, job.ErrInvalidState):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, CancelResponse{Message: "Job cancelled"})
}

// listJobs handles listing all jobs
func (s *Server) listJobs(c *gin.Context) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}

	c.JSON(http.StatusOK, s.jobManager.ListJobs(page, pageSize))
}

// getTrack returns the metadata stored for one track
func (s *Server) getTrack(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrMissingLocation.Error()})
		return
	}

	lib, err := library.New([]string{location}, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	info, err := trackinfo.Open(c.Request.Context(), s.backend, lib.Paths()[0], s.cfg.Namespace)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	tree, err := info.Tree()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	data, err := dictify.MarshalJSON(tree)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// listLocations lists every track the tag store holds metadata for
func (s *Server) listLocations(c *gin.Context) {
	lister, ok := s.backend.(tagstore.Lister)
	if !ok {
		c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error: fmt.Sprintf("%v: %s tag store cannot list tracks", tagstore.ErrNotSupported, s.cfg.TagStore.Type),
		})
		return
	}

	locations, err := lister.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if locations == nil {
		locations = []string{}
	}

	c.JSON(http.StatusOK, LocationsResponse{Locations: locations})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, tagstore.ErrUnknownFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, tagstore.ErrCorruptValue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
