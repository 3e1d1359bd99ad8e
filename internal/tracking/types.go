package tracking

import (
	"context"
	"time"
)

// UnknownLampType is shown when the crew did not record a lamp type.
const UnknownLampType = "לא ידוע"

// Item is the board row describing one asset's latest state.
type Item struct {
	Serial         string
	Latitude       float64
	Longitude      float64
	Date           time.Time
	Notes          string
	PreviousSerial string
	LampType       string
	SwitchType     string
	// Report is the human-readable reconciliation outcome.
	Report string
}

// Board is the tracking board surface used by the audit recorder.
type Board interface {
	CreateItem(ctx context.Context, item Item) (string, error)
	UpdateItem(ctx context.Context, itemID string, item Item) error
	AttachFile(ctx context.Context, itemID, filename string, data []byte) error
}
