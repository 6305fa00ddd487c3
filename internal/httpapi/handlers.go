package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/httpapi/auth"
	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
	"ctrlplane/internal/request"
)

func (s *Server) callerID(r *http.Request) (ids.ID, error) {
	if principal, ok := auth.Principal(r.Context()); ok {
		return principal, nil
	}
	// No-auth mode: callers pass an explicit caller_id query parameter.
	raw := r.URL.Query().Get("caller_id")
	if raw == "" {
		return ids.Nil, apperr.NewValidation("caller_id is required when authentication is disabled")
	}
	return ids.Parse(raw)
}

// handleCreateRequest implements POST /requests (§6 create_request).
func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var dto createRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, apperr.NewValidation("malformed request body"))
		return
	}
	op, err := decodeOperation(dto.Operation)
	if err != nil {
		writeError(w, apperr.NewValidation(err.Error()))
		return
	}
	var plan *model.ExecutionPlan
	if dto.ExecutionAt != nil {
		p := model.ScheduledAt(*dto.ExecutionAt)
		plan = &p
	}
	req, err := s.requests.CreateRequest(caller, op, dto.Title, dto.Summary, plan, dto.ExpirationDt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// handleGetRequest implements GET /requests/{id} (§6 get_request).
func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := ids.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NewValidation("malformed request id"))
		return
	}
	req, err := s.requests.GetRequest(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// handleListRequests implements GET /requests (§6 list_requests, §4.5).
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	var filters []request.Filter
	if statuses := q["status"]; len(statuses) > 0 {
		ss := make([]model.Status, len(statuses))
		for i, s := range statuses {
			ss[i] = model.Status(s)
		}
		filters = append(filters, request.StatusFilter{Statuses: ss})
	}
	if requester := q.Get("requester"); requester != "" {
		rid, err := ids.Parse(requester)
		if err != nil {
			writeError(w, apperr.NewValidation("malformed requester id"))
			return
		}
		filters = append(filters, request.RequesterFilter{UserID: rid})
	}

	sortField := q.Get("sort_by")
	if sortField == "" {
		sortField = "created_at"
	}
	direction := request.Ascending
	if q.Get("sort_direction") == "desc" {
		direction = request.Descending
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, total, next, err := s.requests.ListRequests(caller, filters, request.SortStrategy{Field: sortField, Direction: direction}, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]requestDTO, len(items))
	for i, it := range items {
		dtos[i] = toRequestDTO(it)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       dtos,
		"total":       total,
		"next_offset": next,
	})
}

// handleGetNextApprovable implements GET /requests/next_approvable (§6
// get_next_approvable).
func (s *Server) handleGetNextApprovable(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	excluded := map[ids.ID]bool{}
	for _, raw := range q["excluded_id"] {
		id, err := ids.Parse(raw)
		if err != nil {
			writeError(w, apperr.NewValidation("malformed excluded_id"))
			return
		}
		excluded[id] = true
	}
	var kinds []model.OperationKind
	for _, k := range q["operation_kind"] {
		kinds = append(kinds, model.OperationKind(k))
	}

	req, err := s.requests.GetNextApprovable(caller, excluded, kinds)
	if err != nil {
		writeError(w, err)
		return
	}
	if req == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// handleSubmitApproval implements POST /requests/{id}/approvals (§6
// submit_approval).
func (s *Server) handleSubmitApproval(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := ids.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NewValidation("malformed request id"))
		return
	}
	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewValidation("malformed request body"))
		return
	}
	req, err := s.requests.SubmitApproval(id, caller, model.ApprovalStatus(body.Status), body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// handleCancelRequest implements POST /requests/{id}/cancel (§6
// cancel_request).
func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := ids.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperr.NewValidation("malformed request id"))
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := s.requests.CancelRequest(id, caller, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}
