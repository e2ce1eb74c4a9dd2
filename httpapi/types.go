package httpapi

import (
	"time"

	"github.com/trbjo/goscreen/screen"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type LabelRequest struct {
	Label *string `json:"label" binding:"required"`
}

type SensorResponse struct {
	screen.Snapshot
	Timestamp time.Time `json:"timestamp"`
}
