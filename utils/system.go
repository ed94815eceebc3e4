package utils

import (
	"log"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
)

// GetOptimalWorkerCount determines how many competitors may be scanned in
// parallel, based on config and system resources.
func GetOptimalWorkerCount(configValue string) int {
	// Manual override takes precedence.
	if manualWorkers, err := strconv.Atoi(configValue); err == nil && manualWorkers > 0 {
		log.Printf("Using manually configured number of workers: %d", manualWorkers)
		return manualWorkers
	}

	if configValue != "auto" {
		log.Printf("WARN: Invalid workers value '%s'. Defaulting to 'auto' mode.", configValue)
	}

	// Logical cores (true): scanning is I/O bound, so hyper-threading
	// still helps.
	cpuCores, err := cpu.Counts(true)
	if err != nil {
		log.Printf("WARN: Could not detect CPU cores. Falling back to default: %d workers.", 2)
		return 2
	}

	// Half the cores: each worker may hold a browser instance, which is
	// far heavier than a goroutine.
	optimalCount := cpuCores / 2

	if optimalCount < 1 {
		optimalCount = 1
	}
	if optimalCount > 8 {
		optimalCount = 8
	}

	log.Printf("System has %d logical cores. Automatically setting number of workers to: %d", cpuCores, optimalCount)
	return optimalCount
}
