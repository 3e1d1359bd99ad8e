package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/gis"
	"github.com/nerrad567/assetsync/internal/reconcile"
	"github.com/nerrad567/assetsync/internal/tracking"
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RecorderDeps holds the Recorder's collaborators.
type RecorderDeps struct {
	Board tracking.Board
	Index ItemIndex
	Log   Repository

	// Images is optional; without it no photo is attached.
	Images gis.ImageSource
	// LayerID is the GIS layer the change events come from.
	LayerID int64

	Logger Logger
	Clock  func() time.Time
}

// Outcome describes what the Recorder managed to write.
type Outcome struct {
	ItemID   string
	Created  bool
	Attached bool
	Logged   bool
}

// Recorder writes the tracking board row and the local log entry for one
// reconciliation. It never returns an error: every failure is logged.
type Recorder struct {
	board   tracking.Board
	index   ItemIndex
	log     Repository
	images  gis.ImageSource
	layerID int64
	logger  Logger
	now     func() time.Time
}

// NewRecorder validates deps and creates a Recorder.
func NewRecorder(deps RecorderDeps) (*Recorder, error) {
	if deps.Board == nil {
		return nil, errors.New("audit: tracking board is required")
	}
	if deps.Index == nil {
		return nil, errors.New("audit: item index is required")
	}
	if deps.Log == nil {
		return nil, errors.New("audit: log repository is required")
	}

	r := &Recorder{
		board:   deps.Board,
		index:   deps.Index,
		log:     deps.Log,
		images:  deps.Images,
		layerID: deps.LayerID,
		logger:  deps.Logger,
		now:     deps.Clock,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Record mirrors the report onto the tracking board, attaches the asset
// photo and appends the local log entry.
func (r *Recorder) Record(ctx context.Context, n asset.Normalized, rep reconcile.Report) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audit recording panicked", "run_id", rep.RunID, "serial", n.Serial, "panic", p)
		}
	}()

	photo := r.fetchPhoto(ctx, n)

	itemID, created, err := r.upsertItem(ctx, n.Serial, buildItem(n, rep))
	if err != nil {
		r.logger.Error("tracking item not recorded", "run_id", rep.RunID, "serial", n.Serial, "error", err)
	} else {
		out.ItemID, out.Created = itemID, created
		if len(photo) > 0 {
			if err := r.board.AttachFile(ctx, itemID, pictureName(n.Event.PictureRef), photo); err != nil {
				r.logger.Warn("photo not attached", "run_id", rep.RunID, "item_id", itemID, "error", err)
			} else {
				out.Attached = true
			}
		}
	}

	if err := r.appendLog(ctx, rep, out.ItemID); err != nil {
		r.logger.Error("reconciliation log not written", "run_id", rep.RunID, "serial", n.Serial, "error", err)
	} else {
		out.Logged = true
	}

	r.logger.Info("audit recorded",
		"run_id", rep.RunID,
		"serial", n.Serial,
		"item_id", out.ItemID,
		"created", out.Created,
		"attached", out.Attached,
	)
	return out
}

func (r *Recorder) fetchPhoto(ctx context.Context, n asset.Normalized) []byte {
	if r.images == nil || n.Event.PictureRef == "" {
		return nil
	}
	data, err := r.images.FetchBytes(ctx, r.layerID, n.Event.FeatureID, n.Event.PictureRef)
	if err != nil {
		r.logger.Warn("photo not fetched", "serial", n.Serial, "picture", n.Event.PictureRef, "error", err)
		return nil
	}
	return data
}

// upsertItem updates the serial's known item or creates one and indexes it.
func (r *Recorder) upsertItem(ctx context.Context, serial string, item tracking.Item) (string, bool, error) {
	id, ok, err := r.index.ItemID(ctx, serial)
	if err != nil {
		// The board is still written; a lost index entry only costs a duplicate row.
		r.logger.Warn("tracking index unavailable", "serial", serial, "error", err)
	}
	if ok {
		if err := r.board.UpdateItem(ctx, id, item); err != nil {
			return "", false, fmt.Errorf("updating tracking item %s: %w", id, err)
		}
		return id, false, nil
	}

	id, err = r.board.CreateItem(ctx, item)
	if err != nil {
		return "", false, fmt.Errorf("creating tracking item: %w", err)
	}
	if err := r.index.PutItemID(ctx, serial, id); err != nil {
		r.logger.Warn("tracking item not indexed", "serial", serial, "item_id", id, "error", err)
	}
	return id, true, nil
}

func (r *Recorder) appendLog(ctx context.Context, rep reconcile.Report, itemID string) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return r.log.Create(ctx, &Entry{
		RunID:          rep.RunID,
		Serial:         rep.Serial,
		PreviousSerial: rep.PreviousSerial,
		Class:          string(rep.Class),
		Status:         string(rep.Status),
		Reason:         rep.Reason,
		Report:         body,
		TrackingItemID: itemID,
		CreatedAt:      r.now().UTC(),
	})
}

// buildItem renders the board row for n and its report.
func buildItem(n asset.Normalized, rep reconcile.Report) tracking.Item {
	date := n.Event.Timestamp
	if date.IsZero() {
		date = rep.StartedAt
	}

	report := rep.Summary()
	if n.Event.StatusReason != "" {
		report = "field reason: " + n.Event.StatusReason + "\n" + report
	}

	return tracking.Item{
		Serial:         n.Serial,
		Latitude:       n.Event.Latitude,
		Longitude:      n.Event.Longitude,
		Date:           date,
		Notes:          n.Event.Notes,
		PreviousSerial: n.PreviousSerial,
		LampType:       n.Event.LampType,
		SwitchType:     n.Event.SwitchType,
		Report:         report,
	}
}

// pictureName is the upload name for a picture reference, which may be a path.
func pictureName(ref string) string {
	name := path.Base(ref)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
