package server

import (
	"recordkeep/internal/domain"
	"recordkeep/internal/repo"
)

// Request payloads

type CreateRecordRequest struct {
	RecordID   uint64            `json:"record_id,omitempty" doc:"Caller-assigned record id, stored as given"`
	Name       string            `json:"name" minLength:"1"`
	Contact    string            `json:"contact,omitempty"`
	Roles      []string          `json:"roles,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Response payloads

// RecordResponse carries the store identity in ID and the record's own
// id, untouched by the store, in RecordID.
type RecordResponse struct {
	ID         uint64            `json:"id"`
	RecordID   uint64            `json:"record_id"`
	Name       string            `json:"name"`
	Contact    string            `json:"contact"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ClassifyResponse struct {
	State    string `json:"state"`
	Category string `json:"category" example:"almost done"`
	Display  string `json:"display" example:"Running: 64%"`
}

func (req CreateRecordRequest) record() domain.Record {
	r := domain.NewRecord(req.RecordID, req.Name, req.Contact)
	for _, role := range req.Roles {
		r.AddRole(role)
	}
	for k, v := range req.Attributes {
		r.WithMetadata(k, v)
	}
	return *r
}

// NewRecordResponse renders r as stored under the identity id.
func NewRecordResponse(id uint64, r domain.Record) RecordResponse {
	roles := r.Roles
	if roles == nil {
		roles = []string{}
	}
	return RecordResponse{
		ID:         id,
		RecordID:   r.ID,
		Name:       r.Name,
		Contact:    r.Contact,
		Roles:      roles,
		Attributes: r.Attributes,
	}
}

// NewRecordResponses renders store entries in order.
func NewRecordResponses(entries []repo.Entry[domain.Record]) []RecordResponse {
	res := make([]RecordResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, NewRecordResponse(e.ID, e.Value))
	}
	return res
}
