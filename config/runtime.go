package config

import "sync/atomic"

// Runtime holds settings operators can flip while the process runs.
// It satisfies leave.ModeSource.
type Runtime struct {
	maintenance atomic.Bool
}

func NewRuntime(cfg Config) *Runtime {
	r := &Runtime{}
	r.maintenance.Store(cfg.MaintenanceMode)
	return r
}

func (r *Runtime) MaintenanceMode() bool      { return r.maintenance.Load() }
func (r *Runtime) SetMaintenanceMode(on bool) { r.maintenance.Store(on) }
