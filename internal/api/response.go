package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/audit"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/service"
)

// ReadingResponse is the client view of a reading. Ids are served as strings
// under _id.
type ReadingResponse struct {
	ID          string   `json:"_id"`
	SensorID    string   `json:"sensorId"`
	PowerOutput float64  `json:"powerOutput"`
	Temperature *float64 `json:"temperature"`
	Location    *string  `json:"location"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// ListMeta describes the effective query behind a page
type ListMeta struct {
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	Total      int64    `json:"total"`
	TotalPages int      `json:"totalPages"`
	SortBy     string   `json:"sortBy"`
	Order      string   `json:"order"`
	Filters    []string `json:"filters"`
}

// ListResponse is one page of readings
type ListResponse struct {
	Data []ReadingResponse `json:"data"`
	Meta ListMeta          `json:"meta"`
}

// AuditEntryResponse is the client view of an audit entry
type AuditEntryResponse struct {
	ID        string        `json:"_id"`
	Op        string        `json:"op"`
	Duration  float64       `json:"duration"`
	Details   audit.Details `json:"details"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

// SuccessResponse acknowledges an operation with no body
type SuccessResponse struct {
	Success bool `json:"success"`
}

func toReadingResponse(r *db.EnergyReading) ReadingResponse {
	return ReadingResponse{
		ID:          strconv.FormatInt(r.ID, 10),
		SensorID:    r.SensorID,
		PowerOutput: r.PowerOutput,
		Temperature: r.Temperature,
		Location:    r.Location,
		CreatedAt:   db.FormatTimestamp(r.CreatedAt),
		UpdatedAt:   db.FormatTimestamp(r.UpdatedAt),
	}
}

func toListResponse(result *service.ListResult) ListResponse {
	data := make([]ReadingResponse, 0, len(result.Rows))
	for i := range result.Rows {
		data = append(data, toReadingResponse(&result.Rows[i]))
	}

	filters := result.Filters
	if filters == nil {
		filters = []string{}
	}

	return ListResponse{
		Data: data,
		Meta: ListMeta{
			Page:       result.Page,
			Limit:      result.Limit,
			Total:      result.Total,
			TotalPages: result.TotalPages,
			SortBy:     result.SortBy,
			Order:      result.Order,
			Filters:    filters,
		},
	}
}

// AuditEntryResponses shapes audit entries for clients
func AuditEntryResponses(entries []audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        strconv.FormatInt(e.ID, 10),
			Op:        e.Op,
			Duration:  e.Duration,
			Details:   e.Details,
			CreatedAt: db.FormatTimestamp(e.CreatedAt),
			UpdatedAt: db.FormatTimestamp(e.UpdatedAt),
		})
	}
	return out
}

// writeJSON writes v as JSON with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(v)
}
