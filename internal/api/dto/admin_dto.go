package dto

import (
	"time"

	"github.com/spec-kit/account-console/internal/domain"
	"github.com/spec-kit/account-console/internal/query"
)

// StatusChangeRequest payload for POST /admin/users/:id/status.
type StatusChangeRequest struct {
	NewStatus string `json:"new_status"`
	Reason    string `json:"reason"`
}

// StatusChangeResponse mirrors the console's update result.
type StatusChangeResponse struct {
	User       AccountResponse `json:"user"`
	AuditLogID string          `json:"audit_log_id"`
}

// AdminResponse is the public view of an administrator.
type AdminResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// PaginationResponse describes the page returned.
type PaginationResponse struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationResponse maps pagination metadata.
func NewPaginationResponse(p query.Pagination) PaginationResponse {
	return PaginationResponse{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// AuditLogResponse is one audit entry.
type AuditLogResponse struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	AdminID        string    `json:"admin_id"`
	AdminName      string    `json:"admin_name"`
	TargetUserID   string    `json:"target_user_id"`
	TargetUserName string    `json:"target_user_name"`
	Action         string    `json:"action"`
	PreviousStatus *string   `json:"previous_status,omitempty"`
	NewStatus      *string   `json:"new_status,omitempty"`
	Reason         string    `json:"reason"`
	Result         string    `json:"result"`
}

// NewAuditLogResponse maps an audit entry.
func NewAuditLogResponse(entry domain.AuditLogEntry) AuditLogResponse {
	resp := AuditLogResponse{
		ID:             entry.ID,
		Timestamp:      entry.Timestamp,
		AdminID:        entry.AdminID,
		AdminName:      entry.AdminName,
		TargetUserID:   entry.TargetUserID,
		TargetUserName: entry.TargetUserName,
		Action:         string(entry.Action),
		Reason:         entry.Reason,
		Result:         string(entry.Result),
	}
	if entry.PreviousStatus != nil {
		prev := string(*entry.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	if entry.NewStatus != nil {
		next := string(*entry.NewStatus)
		resp.NewStatus = &next
	}
	return resp
}

// StatusOption is one selectable account status.
type StatusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
