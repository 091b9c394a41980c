package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gfxsel/gfxsel/pkg/backend"
	"github.com/gfxsel/gfxsel/pkg/lifecycle"
	"github.com/gfxsel/gfxsel/pkg/selection"
	"github.com/gfxsel/gfxsel/pkg/telemetry"
)

// Recorder persists selection runs, probe outcomes and lifecycle events from
// a controller into a Store. It subscribes to the controller's event stream;
// terminal results are recorded explicitly via RecordResult.
type Recorder struct {
	store Store
	log   *telemetry.Logger
	subID telemetry.SubscriptionID
	tel   *telemetry.Telemetry
}

// NewRecorder creates a recorder over an initialized store.
func NewRecorder(store Store, tel *telemetry.Telemetry) *Recorder {
	if tel == nil {
		tel = telemetry.NewNopTelemetry()
	}
	return &Recorder{
		store: store,
		log:   tel.Logger.NewComponentLogger("recorder"),
		tel:   tel,
	}
}

// Attach subscribes the recorder to the telemetry event stream so every
// lifecycle event lands in the history store.
func (r *Recorder) Attach() {
	r.subID = r.tel.Events.Subscribe(func(event telemetry.Event) {
		record := &EventRecord{
			Type:      string(event.Type),
			Level:     event.Level,
			Message:   event.Message,
			Timestamp: event.Timestamp,
		}
		if event.RunID != "" {
			record.RunID = &event.RunID
		}
		if event.Family != "" {
			record.Family = &event.Family
		}
		if len(event.Data) > 0 {
			if blob, err := json.Marshal(event.Data); err == nil {
				data := string(blob)
				record.Data = &data
			}
		}
		if err := r.store.AppendEvent(context.Background(), record); err != nil {
			r.log.WithError(err).Warn("failed to persist lifecycle event")
		}
	}, nil)
}

// Detach unsubscribes the recorder from the event stream.
func (r *Recorder) Detach() {
	r.tel.Events.Unsubscribe(r.subID)
}

// RecordResult persists the terminal record of one selection attempt along
// with its probe outcomes.
func (r *Recorder) RecordResult(ctx context.Context, trigger RunTrigger, cfg selection.Config, result *lifecycle.InitResult, probes map[backend.Family]selection.ProbeResult) error {
	if result == nil {
		return fmt.Errorf("nil result")
	}

	tried, err := json.Marshal(familyNames(result.Tried))
	if err != nil {
		return fmt.Errorf("failed to encode tried list: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	run := &SelectionRun{
		ID:            result.RunID,
		Trigger:       trigger,
		Strategy:      string(cfg.Strategy),
		Success:       result.Success,
		Tried:         string(tried),
		Warnings:      string(warnings),
		StartedAt:     result.StartedAt,
		CompletedAt:   result.CompletedAt,
		ProbeDuration: result.ProbeDuration.Milliseconds(),
		InitDuration:  result.InitDuration.Milliseconds(),
		CreatedAt:     time.Now(),
	}
	if cfg.Preferred != "" {
		preferred := string(cfg.Preferred)
		run.Preferred = &preferred
	}
	if result.Family != "" {
		family := string(result.Family)
		run.Family = &family
	}
	if result.Score != nil {
		score := result.Score.Total
		run.Score = &score
	}
	if result.Err != nil {
		msg := result.Err.Error()
		run.Error = &msg
	}

	if err := r.store.CreateRun(ctx, run); err != nil {
		return err
	}

	records := make([]*ProbeRecord, 0, len(probes))
	for _, f := range cfg.Candidates() {
		probe, ok := probes[f]
		if !ok {
			continue
		}
		record := &ProbeRecord{
			RunID:             result.RunID,
			Family:            string(probe.Family),
			Available:         probe.Available,
			DurationMS:        probe.Duration.Milliseconds(),
			DedicatedMemoryMB: probe.DedicatedMemoryMB,
			CreatedAt:         time.Now(),
		}
		if probe.Reason != "" {
			reason := probe.Reason
			record.Reason = &reason
		}
		if probe.DeviceName != "" {
			name := probe.DeviceName
			record.DeviceName = &name
		}
		if probe.VendorName != "" {
			vendor := probe.VendorName
			record.VendorName = &vendor
		}
		if probe.DriverVersion != "" {
			version := probe.DriverVersion
			record.DriverVersion = &version
		}
		if probe.Score != nil {
			total := probe.Score.Total
			record.TotalScore = &total
			record.MeetsRequirements = probe.Score.MeetsRequirements
		}
		records = append(records, record)
	}

	return r.store.AppendProbes(ctx, records)
}

func familyNames(families []backend.Family) []string {
	out := make([]string, len(families))
	for i, f := range families {
		out[i] = string(f)
	}
	return out
}
