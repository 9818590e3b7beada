package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Runtime profiles for different server configurations
const (
	// Small server: 2 vCPU, 4GB RAM (test/dev environment)
	SmallServerGOGC     = 500
	SmallServerMaxProcs = 1 // Leave 1 core for OS

	// Larger servers use half the logical cores to avoid hyperthread contention
	LargeServerGOGC = 800
)

// InitRuntimeForScanning configures the Go runtime for the low-latency scan path.
// Scan passes allocate snapshot maps and path slices per trigger; a high GOGC keeps
// pooled objects warm between triggers. Override with GOGC / GOMAXPROCS env vars.
func InitRuntimeForScanning() {
	totalCPU := runtime.NumCPU()

	gogc := LargeServerGOGC
	maxProcs := totalCPU / 2
	if totalCPU <= 2 {
		gogc = SmallServerGOGC
		maxProcs = SmallServerMaxProcs
	}
	if maxProcs < 1 {
		maxProcs = 1
	}

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(gogc)
		log.Info().Int("GOGC", gogc).Msg("[runtime] set GOGC for scan-path object reuse")
	}

	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(maxProcs)
		log.Info().
			Int("GOMAXPROCS", maxProcs).
			Int("total_cpu", totalCPU).
			Msg("[runtime] set GOMAXPROCS")
	}
}
