package http

import (
	"github.com/arbiterhq/arbiter/internal/service"
)

const defaultBodyLimit = 256 << 10 // 256 KB

// Handlers bundles the services the HTTP adapter fronts.
type Handlers struct {
	Checkpoints *service.CheckpointService
	Calibration *service.CalibrationService
	Scorer      *service.Scorer
	Gate        *service.Gate

	// BodyLimit caps request body size; zero means defaultBodyLimit.
	BodyLimit int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return defaultBodyLimit
}
