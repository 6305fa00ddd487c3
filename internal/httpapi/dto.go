package httpapi

import (
	"encoding/json"
	"fmt"
	"time"

	"ctrlplane/internal/ids"
	"ctrlplane/internal/model"
)

// operationDTO is the wire envelope for the polymorphic Operation payload
// of create_request (§6): a kind discriminator plus a kind-specific body,
// since JSON has no native tagged-union support for model.Operation.
type operationDTO struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

func decodeOperation(dto operationDTO) (model.Operation, error) {
	switch model.OperationKind(dto.Kind) {
	case model.OperationAddUser:
		var body struct {
			Name       string   `json:"name"`
			Identities []string `json:"identities"`
			GroupIDs   []string `json:"group_ids"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		groups, err := parseIDs(body.GroupIDs)
		if err != nil {
			return nil, err
		}
		return model.AddUserOperation{Name: body.Name, Identities: body.Identities, GroupIDs: groups}, nil

	case model.OperationEditUser:
		var body struct {
			UserID     string    `json:"user_id"`
			Name       *string   `json:"name"`
			Identities *[]string `json:"identities"`
			GroupIDs   *[]string `json:"group_ids"`
			Status     *string   `json:"status"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		userID, err := ids.Parse(body.UserID)
		if err != nil {
			return nil, err
		}
		op := model.EditUserOperation{UserID: userID, Name: body.Name, Status: body.Status}
		if body.GroupIDs != nil {
			groups, err := parseIDs(*body.GroupIDs)
			if err != nil {
				return nil, err
			}
			op.GroupIDs = &groups
		}
		op.Identities = body.Identities
		return op, nil

	case model.OperationAddUserGroup:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		return model.AddUserGroupOperation{Name: body.Name}, nil

	case model.OperationAddAccount:
		var body struct {
			Name       string            `json:"name"`
			Blockchain string            `json:"blockchain"`
			Metadata   map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		return model.AddAccountOperation{Name: body.Name, Blockchain: body.Blockchain, Metadata: body.Metadata}, nil

	case model.OperationTransfer:
		var body struct {
			FromAccountID string `json:"from_account_id"`
			Destination   string `json:"destination"`
			Amount        string `json:"amount"`
			Memo          string `json:"memo"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		fromID, err := ids.Parse(body.FromAccountID)
		if err != nil {
			return nil, err
		}
		return model.TransferOperation{FromAccountID: fromID, Destination: body.Destination, Amount: body.Amount, Memo: body.Memo}, nil

	case model.OperationAddAddressBookEntry:
		var body struct {
			Address  string            `json:"address"`
			Label    string            `json:"label"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		return model.AddAddressBookEntryOperation{Address: body.Address, Label: body.Label, Metadata: body.Metadata}, nil

	case model.OperationAddPolicy:
		var body struct {
			Specifier resourceDTO `json:"specifier"`
			Rule      ruleDTO     `json:"rule"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		res, err := body.Specifier.toModel()
		if err != nil {
			return nil, err
		}
		rule, err := body.Rule.toModel()
		if err != nil {
			return nil, err
		}
		return model.AddPolicyOperation{Specifier: model.Specifier{Resource: res}, Rule: rule}, nil

	case model.OperationEditPolicy:
		var body struct {
			PolicyID  string       `json:"policy_id"`
			Specifier *resourceDTO `json:"specifier"`
			Rule      *ruleDTO     `json:"rule"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		policyID, err := ids.Parse(body.PolicyID)
		if err != nil {
			return nil, err
		}
		op := model.EditPolicyOperation{PolicyID: policyID}
		if body.Specifier != nil {
			res, err := body.Specifier.toModel()
			if err != nil {
				return nil, err
			}
			op.Specifier = &model.Specifier{Resource: res}
		}
		if body.Rule != nil {
			rule, err := body.Rule.toModel()
			if err != nil {
				return nil, err
			}
			op.Rule = &rule
		}
		return op, nil

	case model.OperationEditPermission:
		var body struct {
			Resource resourceDTO `json:"resource"`
			Users    []string    `json:"users"`
			Groups   []string    `json:"groups"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		res, err := body.Resource.toModel()
		if err != nil {
			return nil, err
		}
		users, err := parseIDs(body.Users)
		if err != nil {
			return nil, err
		}
		groups, err := parseIDs(body.Groups)
		if err != nil {
			return nil, err
		}
		return model.EditPermissionOperation{Resource: res, Users: users, Groups: groups}, nil

	case model.OperationRemovePolicy:
		var body struct {
			PolicyID string `json:"policy_id"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		policyID, err := ids.Parse(body.PolicyID)
		if err != nil {
			return nil, err
		}
		return model.RemovePolicyOperation{PolicyID: policyID}, nil

	case model.OperationRestore:
		var body struct {
			SnapshotID string `json:"snapshot_id"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		return model.RestoreOperation{SnapshotID: body.SnapshotID}, nil

	case model.OperationUpgrade:
		var body struct {
			InlineModule []byte `json:"inline_module"`
			Arg          []byte `json:"arg"`
			Mode         string `json:"mode"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		return model.UpgradeOperation{
			Module: model.ModulePayload{InlineBytes: body.InlineModule},
			Arg:    body.Arg,
			Mode:   model.UpgradeMode(body.Mode),
		}, nil

	case model.OperationCallExternalCanister:
		var body struct {
			ExecutionCanisterID  string `json:"execution_canister_id"`
			ExecutionMethod      string `json:"execution_method"`
			ValidationNone       bool   `json:"validation_none"`
			ValidationCanisterID string `json:"validation_canister_id"`
			ValidationMethod     string `json:"validation_method"`
			Arg                  []byte `json:"arg"`
		}
		if err := json.Unmarshal(dto.Body, &body); err != nil {
			return nil, err
		}
		execCanisterID, err := ids.Parse(body.ExecutionCanisterID)
		if err != nil {
			return nil, err
		}
		validation := model.NoValidation()
		if !body.ValidationNone {
			validationCanisterID, err := ids.Parse(body.ValidationCanisterID)
			if err != nil {
				return nil, err
			}
			validation = model.ValidationMethod{Method: model.CanisterMethod{CanisterID: validationCanisterID, Method: body.ValidationMethod}}
		}
		return model.CallExternalCanisterOperation{
			Execution:  model.CanisterMethod{CanisterID: execCanisterID, Method: body.ExecutionMethod},
			Validation: validation,
			Arg:        body.Arg,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported operation kind %q", dto.Kind)
	}
}

// resourceDTO is the wire form of model.Resource for EditPermission bodies.
type resourceDTO struct {
	Subsystem string `json:"subsystem"`
	Action    string `json:"action"`
	TargetAny bool   `json:"target_any"`
	TargetID  string `json:"target_id"`
}

func (d resourceDTO) toModel() (model.Resource, error) {
	target := model.AnyResourceID()
	if !d.TargetAny {
		id, err := ids.Parse(d.TargetID)
		if err != nil {
			return model.Resource{}, err
		}
		target = model.SpecificResourceID(id)
	}
	return model.Resource{
		Subsystem:        model.Subsystem(d.Subsystem),
		Action:           model.Action(d.Action),
		Target:           target,
		ValidationMethod: model.NoValidation(),
	}, nil
}

// userSpecDTO is the wire form of model.UserSpec.
type userSpecDTO struct {
	Kind     string   `json:"kind"`
	UserIDs  []string `json:"user_ids,omitempty"`
	GroupIDs []string `json:"group_ids,omitempty"`
}

func (d userSpecDTO) toModel() (model.UserSpec, error) {
	switch model.UserSpecKind(d.Kind) {
	case model.UserSpecAny:
		return model.AnyUser(), nil
	case model.UserSpecID:
		userIDs, err := parseIDs(d.UserIDs)
		if err != nil {
			return model.UserSpec{}, err
		}
		return model.UsersByID(userIDs...), nil
	case model.UserSpecGroup:
		groupIDs, err := parseIDs(d.GroupIDs)
		if err != nil {
			return model.UserSpec{}, err
		}
		return model.UsersByGroup(groupIDs...), nil
	default:
		return model.UserSpec{}, fmt.Errorf("unsupported user spec kind %q", d.Kind)
	}
}

// ruleDTO is the wire form of the recursive model.Rule tree (§4.1), needed
// because a Go struct with a *ruleDTO/[]ruleDTO field already round-trips
// through encoding/json without a tagged-union envelope — unlike
// model.Operation, Rule's variants share one Go type, so Kind alone is
// enough to dispatch decoding.
type ruleDTO struct {
	Kind          string      `json:"kind"`
	UserSpec      userSpecDTO `json:"user_spec"`
	N             uint32      `json:"n"`
	Percent       uint32      `json:"percent"`
	MetadataKey   string      `json:"metadata_key"`
	MetadataValue string      `json:"metadata_value"`
	Children      []ruleDTO   `json:"children,omitempty"`
	Inner         *ruleDTO    `json:"inner,omitempty"`
	NamedRuleID   string      `json:"named_rule_id,omitempty"`
}

func (d ruleDTO) toModel() (model.Rule, error) {
	switch model.RuleKind(d.Kind) {
	case model.RuleQuorum:
		spec, err := d.UserSpec.toModel()
		if err != nil {
			return model.Rule{}, err
		}
		return model.Quorum(spec, d.N), nil
	case model.RuleQuorumPercentage:
		spec, err := d.UserSpec.toModel()
		if err != nil {
			return model.Rule{}, err
		}
		return model.QuorumPercentage(spec, d.Percent), nil
	case model.RuleAllowListed:
		return model.AllowListed(), nil
	case model.RuleAllowListedByMetadata:
		return model.AllowListedByMetadata(d.MetadataKey, d.MetadataValue), nil
	case model.RuleAnd, model.RuleOr:
		children := make([]model.Rule, len(d.Children))
		for i, c := range d.Children {
			child, err := c.toModel()
			if err != nil {
				return model.Rule{}, err
			}
			children[i] = child
		}
		if model.RuleKind(d.Kind) == model.RuleAnd {
			return model.And(children...), nil
		}
		return model.Or(children...), nil
	case model.RuleNot:
		if d.Inner == nil {
			return model.Rule{}, fmt.Errorf("not rule requires inner")
		}
		inner, err := d.Inner.toModel()
		if err != nil {
			return model.Rule{}, err
		}
		return model.NotRule(inner), nil
	case model.RuleAutoApproved:
		return model.AutoApproved(), nil
	case model.RuleNamedRule:
		id, err := ids.Parse(d.NamedRuleID)
		if err != nil {
			return model.Rule{}, err
		}
		return model.NamedRuleRef(id), nil
	default:
		return model.Rule{}, fmt.Errorf("unsupported rule kind %q", d.Kind)
	}
}

func modulePayloadFromInline(inline []byte) model.ModulePayload {
	return model.ModulePayload{InlineBytes: inline}
}

func modeFromString(mode string) model.UpgradeMode {
	return model.UpgradeMode(mode)
}

func parseIDs(raw []string) ([]ids.ID, error) {
	out := make([]ids.ID, len(raw))
	for i, s := range raw {
		id, err := ids.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// createRequestDTO is the decoded body of POST /requests (§6 create_request).
type createRequestDTO struct {
	Operation    operationDTO `json:"operation"`
	Title        string       `json:"title"`
	Summary      string       `json:"summary"`
	ExecutionAt  *time.Time   `json:"execution_at"`
	ExpirationDt *time.Time   `json:"expiration_dt"`
}

// requestDTO is the wire form of model.Request returned to clients.
type requestDTO struct {
	ID                        string        `json:"id"`
	Title                     string        `json:"title"`
	Summary                   string        `json:"summary"`
	RequestedBy               string        `json:"requested_by"`
	Status                    string        `json:"status"`
	StatusReason              string        `json:"status_reason,omitempty"`
	OperationKind             string        `json:"operation_kind"`
	ExpirationDt              time.Time     `json:"expiration_dt"`
	Approvals                 []approvalDTO `json:"approvals"`
	CreatedTimestamp          time.Time     `json:"created_timestamp"`
	LastModificationTimestamp time.Time     `json:"last_modification_timestamp"`
}

type approvalDTO struct {
	ApproverID string `json:"approver_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

func toRequestDTO(r *model.Request) requestDTO {
	approvals := make([]approvalDTO, len(r.Approvals))
	for i, a := range r.Approvals {
		approvals[i] = approvalDTO{ApproverID: a.ApproverID.String(), Status: string(a.Status), Reason: a.Reason}
	}
	return requestDTO{
		ID:                        r.ID.String(),
		Title:                     r.Title,
		Summary:                   r.Summary,
		RequestedBy:               r.RequestedBy.String(),
		Status:                    string(r.Status),
		StatusReason:              r.StatusReason,
		OperationKind:             string(r.Operation.Kind()),
		ExpirationDt:              r.ExpirationDt,
		Approvals:                 approvals,
		CreatedTimestamp:          r.CreatedTimestamp,
		LastModificationTimestamp: r.LastModificationTimestamp,
	}
}
