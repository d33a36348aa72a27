// Package httpx provides the HTTP API for submitting aggregation jobs and collecting their results.
package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/target/surveystats/internal/domain/model"
	"github.com/target/surveystats/internal/http/validation"
	"github.com/target/surveystats/internal/service"
)

// questionRequest is the body of submissions that span every state.
type questionRequest struct {
	Question string `json:"question" validate:"notblank,max=1024"`
	State    string `json:"state,omitempty" validate:"omitempty,max=128"`
}

// stateQuestionRequest is the body of state-scoped submissions.
type stateQuestionRequest struct {
	Question string `json:"question" validate:"notblank,max=1024"`
	State    string `json:"state" validate:"notblank,max=128"`
}

// submitResponse is returned for every accepted submission.
type submitResponse struct {
	JobID int64 `json:"job_id"`
}

// dataResponse wraps successful reads.
type dataResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc       *service.JobService
	Validator *validation.Validator
	Logger    *slog.Logger
}

// Submit returns a handler that enqueues a job of the given kind.
func (h *JobHandlers) Submit(kind model.JobKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, ok := h.decodeParams(w, r, kind)
		if !ok {
			return
		}

		id, err := h.Svc.Submit(r.Context(), kind, params)
		if err != nil {
			writeServiceError(w, r, h.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, submitResponse{JobID: id})
	}
}

func (h *JobHandlers) decodeParams(w http.ResponseWriter, r *http.Request, kind model.JobKind) (model.JobParams, bool) {
	var (
		params model.JobParams
		err    error
	)
	if kind.RequiresState() {
		var req stateQuestionRequest
		if !DecodeJSON(w, r, &req) {
			return params, false
		}
		err = h.Validator.Struct(req)
		params = model.JobParams{Question: req.Question, State: req.State}
	} else {
		var req questionRequest
		if !DecodeJSON(w, r, &req) {
			return params, false
		}
		err = h.Validator.Struct(req)
		params = model.JobParams{Question: req.Question, State: req.State}
	}
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return params, false
	}
	return params, true
}

// Jobs lists every job and its status in submission order.
func (h *JobHandlers) Jobs(w http.ResponseWriter, _ *http.Request) {
	states := h.Svc.ListJobs()
	data := make([]map[string]model.JobStatus, 0, len(states))
	for _, st := range states {
		data = append(data, map[string]model.JobStatus{strconv.FormatInt(st.ID, 10): st.Status})
	}
	WriteJSON(w, http.StatusOK, dataResponse{Status: StatusDone, Data: data})
}

// NumJobs reports how many jobs are still waiting for a worker.
func (h *JobHandlers) NumJobs(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Data   int    `json:"data"`
	}{Status: StatusDone, Data: h.Svc.PendingCount()})
}

// GetResults reports a job's status and, once done, its artifact.
// The optional query parameter projects the artifact through a JMESPath expression.
func (h *JobHandlers) GetResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrorBody{Reason: "Job ID must be an integer", Field: "id"})
		return
	}
	query := r.URL.Query().Get("query")
	if err := service.ValidateQuery(query); err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	h.Logger.InfoContext(r.Context(), "result requested", "job_id", id)
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	switch {
	case view.Status == model.JobStatusRunning:
		WriteJSON(w, http.StatusOK, dataResponse{Status: StatusRunning})
	case view.Artifact == nil:
		WriteJSON(w, http.StatusOK, dataResponse{Status: StatusDone})
	case query == "":
		WriteJSON(w, http.StatusOK, dataResponse{Status: StatusDone, Data: view.Artifact})
	default:
		projected, qerr := service.QueryArtifact(view.Artifact, query)
		if qerr != nil {
			writeServiceError(w, r, h.Logger, qerr)
			return
		}
		WriteJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
			Data   any    `json:"data"`
		}{Status: StatusDone, Data: projected})
	}
}

// GracefulShutdown stops intake and blocks until the workers exit.
func (h *JobHandlers) GracefulShutdown(w http.ResponseWriter, r *http.Request) {
	h.Logger.InfoContext(r.Context(), "graceful shutdown requested")
	drained, err := h.Svc.Shutdown(r.Context())
	if err != nil || !drained {
		if err != nil {
			h.Logger.WarnContext(r.Context(), "graceful shutdown incomplete", "error", err)
		}
		WriteJSON(w, http.StatusOK, dataResponse{Status: StatusError, Data: "shutting down"})
		return
	}
	WriteJSON(w, http.StatusOK, dataResponse{Status: StatusDone})
}
