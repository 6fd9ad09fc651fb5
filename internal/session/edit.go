package session

import (
	"context"

	"github.com/starford/holocron/internal/models"
)

// Edit loads id into ctrl, applies fields to a fresh draft and saves. It is
// the non-interactive path used by the CLI, the MCP tools and the REST
// one-shot endpoint. If any step after loading fails the draft is dropped so
// ctrl is back in viewing mode.
func Edit(ctx context.Context, ctrl *Controller, id string, fields models.Fields) (Snapshot, error) {
	if _, err := ctrl.Load(ctx, id); err != nil {
		return Snapshot{}, err
	}
	if err := ctrl.BeginEdit(); err != nil {
		return Snapshot{}, err
	}
	for _, f := range fields.Keys() {
		if err := ctrl.UpdateField(f, fields[f]); err != nil {
			ctrl.CancelEdit()
			return Snapshot{}, err
		}
	}
	snap, err := ctrl.Save(ctx)
	if err != nil {
		ctrl.CancelEdit()
		return Snapshot{}, err
	}
	return snap, nil
}
