package monitoring

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/Sprey412/backup-be/internal/services"
)

// DiskMonitor periodically samples free space on the backup volume and
// raises an alert event when it drops below the configured floor. A full
// backup destination is the most common way scheduled passes start failing,
// so operators get warned before that happens.
type DiskMonitor struct {
	eventSvc   services.EventServiceProvider
	backupRoot string
	minFree    uint64
	period     time.Duration
	ticker     *time.Ticker
	done       chan bool
	alerting   bool
}

// NewDiskMonitor creates a new DiskMonitor watching backupRoot.
func NewDiskMonitor(eventSvc services.EventServiceProvider, backupRoot string, minFree uint64, period time.Duration) *DiskMonitor {
	return &DiskMonitor{
		eventSvc:   eventSvc,
		backupRoot: backupRoot,
		minFree:    minFree,
		period:     period,
		done:       make(chan bool),
	}
}

// Run starts the periodic sampling loop.
func (m *DiskMonitor) Run() {
	log.Info().Str("backup_root", m.backupRoot).Msg("Starting backup volume disk monitor...")
	m.ticker = time.NewTicker(m.period)
	defer m.ticker.Stop()

	// Sample once immediately on start
	m.sample()

	for {
		select {
		case <-m.done:
			log.Info().Msg("Stopping backup volume disk monitor.")
			return
		case <-m.ticker.C:
			m.sample()
		}
	}
}

// Stop halts the periodic sampling.
func (m *DiskMonitor) Stop() {
	m.done <- true
}

// sample reads the volume usage and emits an alert on a low-to-lower
// transition. The alert fires once per low-space episode, not every tick.
func (m *DiskMonitor) sample() {
	usage, err := disk.Usage(m.backupRoot)
	if err != nil {
		log.Warn().Err(err).Str("backup_root", m.backupRoot).Msg("DiskMonitor: could not read volume usage")
		return
	}

	if usage.Free >= m.minFree {
		if m.alerting {
			m.alerting = false
			m.eventSvc.CreateEvent("system.alert.disk.clear", "info",
				fmt.Sprintf("Backup volume free space recovered (%d bytes free).", usage.Free), nil)
		}
		return
	}

	if m.alerting {
		return
	}
	m.alerting = true
	log.Warn().Uint64("free_bytes", usage.Free).Float64("used_percent", usage.UsedPercent).Msg("Backup volume is low on space")
	m.eventSvc.CreateEvent("system.alert.disk", "warn",
		fmt.Sprintf("Backup volume is low on space: %d bytes free (%.1f%% used).", usage.Free, usage.UsedPercent), nil)
}
