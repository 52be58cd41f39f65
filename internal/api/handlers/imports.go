package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gekko-logistics/waybills-server/internal/api/middleware"
	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/imports"
)

// formFileField is the multipart field name carrying the CSV payload.
const formFileField = "file"

type ImportsHandler struct {
	Engine   *imports.Engine
	Intake   *imports.Intake
	Jobs     imports.JobStore
	Versions waybills.VersionBumper
	MaxBytes int64
	Env      string
}

func NewImportsHandler(engine *imports.Engine, intake *imports.Intake, jobs imports.JobStore, versions waybills.VersionBumper, maxBytes int64, env string) *ImportsHandler {
	return &ImportsHandler{
		Engine:   engine,
		Intake:   intake,
		Jobs:     jobs,
		Versions: versions,
		MaxBytes: maxBytes,
		Env:      env,
	}
}

// Import accepts a multipart CSV upload. With ?async=true the payload is
// queued and a job id returned; otherwise the run completes inline.
func (h *ImportsHandler) Import(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	file, _, err := r.FormFile(formFileField)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithDetail("a multipart \""+formFileField+"\" field with the CSV payload is required"))
		return
	}
	defer func() { _ = file.Close() }()

	if strings.EqualFold(r.URL.Query().Get("async"), "true") {
		h.importAsync(w, r, tenantID, file)
		return
	}

	result, err := h.Engine.Run(r.Context(), tenantID, uuid.NewString(), file)
	if err != nil {
		if errors.Is(err, imports.ErrEmptyFile) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Import failed", err, h.Env)
		return
	}

	// The batch is committed; derived reads must recompute.
	h.Versions.Increment(tenantID, "import-succeeded")

	writeJSON(w, http.StatusOK, result)
}

func (h *ImportsHandler) importAsync(w http.ResponseWriter, r *http.Request, tenantID string, file io.Reader) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	job, err := h.Intake.Submit(r.Context(), tenantID, buf.Bytes())
	if err != nil {
		if errors.Is(err, imports.ErrQueueFull) {
			problem.Write(w, r, http.StatusServiceUnavailable, problem.TypeQueueFull, "Import queue full", err, h.Env,
				problem.WithDetail("the import queue is full; retry later"))
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.ID.String(),
		"status": string(job.Status),
	})
}

// GetJob serves the polling endpoint for async imports.
func (h *ImportsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())

	raw := strings.TrimSpace(pathParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", waybills.FilterError{Field: "id", Message: "must be a UUID"}, h.Env)
		return
	}

	job, err := h.Jobs.Get(r.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, imports.ErrJobNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
