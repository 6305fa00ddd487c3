package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ctrlplane/internal/apperr"
	"ctrlplane/internal/dr"
)

// handleGetDRState implements get_disaster_recovery_state (§6).
func (s *Server) handleGetDRState(w http.ResponseWriter, r *http.Request) {
	state, err := s.dr.GetState()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSetCommittee implements set_committee (§6).
func (s *Server) handleSetCommittee(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Users  []string `json:"users"`
		Quorum int      `json:"quorum"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewValidation("malformed request body"))
		return
	}
	members, err := parseIDs(body.Users)
	if err != nil {
		writeError(w, apperr.NewValidation("malformed committee member id"))
		return
	}
	if err := s.dr.SetCommittee(members, body.Quorum); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// proposalBody is the decoded body of POST /disaster-recovery/proposals.
type proposalBody struct {
	Kind            string `json:"kind"`
	InlineModule    []byte `json:"inline_module"`
	Arg             []byte `json:"arg"`
	Mode            string `json:"mode"`
	ReplaceSnapshot string `json:"replace_snapshot"`
	Force           bool   `json:"force"`
	SnapshotID      string `json:"snapshot_id"`
}

// handleRequestRecovery implements request_recovery (§6), member-only.
func (s *Server) handleRequestRecovery(w http.ResponseWriter, r *http.Request) {
	caller, err := s.callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body proposalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperr.NewValidation("malformed request body"))
		return
	}

	proposal, err := decodeProposal(body)
	if err != nil {
		writeError(w, apperr.NewValidation(err.Error()))
		return
	}
	if err := s.dr.RequestRecovery(caller, proposal); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeProposal(body proposalBody) (dr.Proposal, error) {
	switch dr.ProposalKind(body.Kind) {
	case dr.ProposalInstallCode:
		return dr.Proposal{
			Kind:   dr.ProposalInstallCode,
			Module: modulePayloadFromInline(body.InlineModule),
			Arg:    body.Arg,
			Mode:   modeFromString(body.Mode),
		}, nil
	case dr.ProposalSnapshot:
		return dr.Proposal{Kind: dr.ProposalSnapshot, ReplaceSnapshot: body.ReplaceSnapshot, Force: body.Force}, nil
	case dr.ProposalRestore:
		return dr.Proposal{Kind: dr.ProposalRestore, SnapshotID: body.SnapshotID}, nil
	default:
		return dr.Proposal{}, apperr.NewValidation("unsupported recovery proposal kind")
	}
}

// handleGetDRLogs implements get_logs (§6).
func (s *Server) handleGetDRLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.dr.Logs(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
