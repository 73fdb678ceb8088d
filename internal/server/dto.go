package server

import (
	"github.com/owemate/owemate/internal/calculator"
	"github.com/owemate/owemate/internal/models"
)

type memberResponse struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	AmountOwed float64 `json:"amountOwed"`
	AmountLent float64 `json:"amountLent"`
}

type splitResponse struct {
	MemberID   string  `json:"memberId"`
	MemberName string  `json:"memberName"`
	Amount     float64 `json:"amount"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	PaidBy      string          `json:"paidBy"`
	PaidByName  string          `json:"paidByName"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Splits      []splitResponse `json:"splits"`
	Date        int64           `json:"date"`
}

type groupResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	ImageURL      string            `json:"imageUrl"`
	Members       []memberResponse  `json:"members"`
	Expenses      []expenseResponse `json:"expenses"`
	CreatedBy     string            `json:"createdBy"`
	InviteCode    string            `json:"inviteCode"`
	TotalExpenses float64           `json:"totalExpenses"`
	CreatedAt     int64             `json:"createdAt"`
	UpdatedAt     int64             `json:"updatedAt"`
}

type settlementResponse struct {
	ID         string  `json:"id"`
	GroupID    string  `json:"groupId"`
	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Amount     float64 `json:"amount"`
	CreatedAt  int64   `json:"createdAt"`
	CreatedBy  string  `json:"createdBy"`
	Note       string  `json:"note,omitempty"`
}

type balanceResponse struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	TotalLent  float64 `json:"totalLent"`
	TotalOwed  float64 `json:"totalOwed"`
	NetBalance float64 `json:"netBalance"`
}

type debtEdgeResponse struct {
	FromUserID string  `json:"fromUserId"`
	ToUserID   string  `json:"toUserId"`
	Amount     float64 `json:"amount"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

func toGroupResponse(g *models.Group) groupResponse {
	members := make([]memberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = memberResponse{
			UserID:     m.UserID,
			Name:       m.Name,
			Email:      m.Email,
			AmountOwed: m.AmountOwed,
			AmountLent: m.AmountLent,
		}
	}

	expenses := make([]expenseResponse, len(g.Expenses))
	for i, e := range g.Expenses {
		splits := make([]splitResponse, len(e.Splits))
		for j, sp := range e.Splits {
			splits[j] = splitResponse{
				MemberID:   sp.MemberID,
				MemberName: sp.MemberName,
				Amount:     sp.Amount,
			}
		}
		expenses[i] = expenseResponse{
			ID:          e.ID,
			PaidBy:      e.PaidBy,
			PaidByName:  e.PaidByName,
			Amount:      e.Amount,
			Description: e.Description,
			Category:    e.Category,
			Splits:      splits,
			Date:        e.Date,
		}
	}

	return groupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		ImageURL:      g.ImageURL,
		Members:       members,
		Expenses:      expenses,
		CreatedBy:     g.CreatedBy,
		InviteCode:    g.InviteCode,
		TotalExpenses: g.TotalExpenses(),
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

func toSettlementResponse(s *models.Settlement) settlementResponse {
	return settlementResponse{
		ID:         s.ID,
		GroupID:    s.GroupID,
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount,
		CreatedAt:  s.CreatedAt,
		CreatedBy:  s.CreatedBy,
		Note:       s.Note,
	}
}

func toBalancesResponse(balances []calculator.MemberBalance, edges []calculator.DebtEdge) map[string]any {
	bs := make([]balanceResponse, len(balances))
	for i, b := range balances {
		bs[i] = balanceResponse{
			UserID:     b.UserID,
			Name:       b.Name,
			TotalLent:  b.TotalLent,
			TotalOwed:  b.TotalOwed,
			NetBalance: b.NetBalance,
		}
	}
	es := make([]debtEdgeResponse, len(edges))
	for i, e := range edges {
		es[i] = debtEdgeResponse{
			FromUserID: e.FromUserID,
			ToUserID:   e.ToUserID,
			Amount:     e.Amount,
		}
	}
	return map[string]any{"balances": bs, "debts": es}
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
