package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/owemate/owemate/internal/ledger"
	"github.com/owemate/owemate/internal/middleware"
	"github.com/owemate/owemate/internal/models"
	"github.com/owemate/owemate/internal/service"
)

// Handlers bundles the HTTP handlers with their services.
type Handlers struct {
	groups *service.GroupService
	auth   *service.AuthService
}

// NewHandlers creates the handler set.
func NewHandlers(groups *service.GroupService, authSvc *service.AuthService) *Handlers {
	return &Handlers{groups: groups, auth: authSvc}
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

type addMemberRequest struct {
	Email string `json:"email"`
}

type transferOwnershipRequest struct {
	NewOwnerID string `json:"newOwnerId"`
}

type addExpenseRequest struct {
	PaidBy      string         `json:"paidBy"`
	Amount      float64        `json:"amount"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Splits      []splitRequest `json:"splits"`
}

type splitRequest struct {
	MemberID string  `json:"memberId"`
	Amount   float64 `json:"amount"`
}

type settleUpRequest struct {
	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

func caller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	c, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
	}
	return c, ok
}

func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), c, req.Name, req.Description)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	groups, err := h.groups.ListGroups(r.Context(), c)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	group, err := h.groups.GetGroup(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.groups.DeleteGroup(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req joinGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	group, err := h.groups.JoinGroup(r.Context(), c, req.InviteCode)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) AddMember(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	group, err := h.groups.AddMember(r.Context(), c, chi.URLParam(r, "id"), req.Email)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	group, deleted, err := h.groups.LeaveGroup(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if deleted {
		writeJSON(w, http.StatusOK, map[string]string{"status": "group_deleted"})
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req transferOwnershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	group, err := h.groups.TransferOwnership(r.Context(), c, chi.URLParam(r, "id"), req.NewOwnerID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req addExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	splits := make([]models.Split, len(req.Splits))
	for i, sp := range req.Splits {
		splits[i] = models.Split{MemberID: sp.MemberID, Amount: sp.Amount}
	}

	group, err := h.groups.AddExpense(r.Context(), c, chi.URLParam(r, "id"), ledger.ExpenseInput{
		PaidBy:      req.PaidBy,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Splits:      splits,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	group, err := h.groups.DeleteExpense(r.Context(), c, chi.URLParam(r, "id"), chi.URLParam(r, "expenseId"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) SettleUp(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req settleUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	group, err := h.groups.SettleUp(r.Context(), c, chi.URLParam(r, "id"),
		req.FromUserID, req.ToUserID, req.Amount, req.Note)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (h *Handlers) GroupBalances(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	balances, edges, err := h.groups.GroupBalances(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalancesResponse(balances, edges))
}

func (h *Handlers) ListSettlements(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	settlements, err := h.groups.ListSettlements(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	out := make([]settlementResponse, len(settlements))
	for i, s := range settlements {
		out[i] = toSettlementResponse(s)
	}
	writeJSON(w, http.StatusOK, out)
}
