package http

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope of every /api reply.
type apiResponse struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func newPagination(p PageParams, total int) *pagination {
	return &pagination{
		Page:    p.Offset/p.Limit + 1,
		Limit:   p.Limit,
		Total:   total,
		Pages:   (total + p.Limit - 1) / p.Limit,
		HasNext: p.Offset+p.Limit < total,
		HasPrev: p.Offset > 0,
	}
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any, page *pagination) {
	writeJSON(w, status, apiResponse{Success: true, Data: data, Pagination: page})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Error: message})
}
