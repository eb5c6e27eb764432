package dashboard

import (
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/orderview"
	"github.com/mmeshcher/livreur-console/internal/scanner"
)

// ScannerState описывает форму поиска кода.
type ScannerState struct {
	Mode        ScannerMode   `json:"mode"`
	Session     scanner.State `json:"session"`
	CameraError string        `json:"cameraError,omitempty"`
	LookupError string        `json:"lookupError,omitempty"`
}

// State содержит копию состояния экрана для отображения.
type State struct {
	Summary     *model.Dashboard    `json:"summary,omitempty"`
	Orders      []model.Order       `json:"orders"`
	IsAvailable bool                `json:"isAvailable"`
	Scanner     ScannerState        `json:"scanner"`
	Detail      *orderview.Snapshot `json:"detail,omitempty"`
	Toasts      []Toast             `json:"toasts,omitempty"`
}

// Snapshot возвращает копию состояния экрана.
func (d *Dashboard) Snapshot() State {
	session := d.scanner.State()
	var cameraErr string
	if err := d.scanner.CameraError(); err != nil {
		cameraErr = err.Error()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	st := State{
		Orders:      append([]model.Order{}, d.orders...),
		IsAvailable: d.isAvailable,
		Scanner: ScannerState{
			Mode:        d.mode,
			Session:     session,
			CameraError: cameraErr,
			LookupError: d.lookupErr,
		},
		Toasts: append([]Toast(nil), d.toasts...),
	}
	if d.summary != nil {
		s := *d.summary
		st.Summary = &s
	}
	if d.detail != nil {
		snap := d.detail.Snapshot()
		st.Detail = &snap
	}
	return st
}
