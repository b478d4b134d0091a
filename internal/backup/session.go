package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidConfig indicates a bad source/backup path or schedule.
	ErrInvalidConfig = errors.New("invalid backup configuration")
	// ErrAlreadyRunning indicates Start was called on a running session.
	ErrAlreadyRunning = errors.New("backup session is already running")
	// ErrNotRunning indicates an operation that requires a running session.
	ErrNotRunning = errors.New("backup session is not running")
)

// Config holds the immutable settings for one backup session.
// Either Interval or Cron must be set. A positive Interval schedules a pass
// every Interval; a non-empty Cron is a standard 5-field cron expression
// (e.g. "0 4 * * *" for 4 AM daily) and takes precedence over Interval.
type Config struct {
	SourceRoot string        `json:"sourceRoot"`
	BackupRoot string        `json:"backupRoot"`
	Interval   time.Duration `json:"interval"`
	Cron       string        `json:"cron,omitempty"`
}

// Schedule compiles the configured interval or cron expression.
func (c Config) Schedule() (cron.Schedule, error) {
	spec := c.Cron
	if spec == "" {
		if c.Interval <= 0 {
			return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
		}
		spec = fmt.Sprintf("@every %s", c.Interval)
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return sched, nil
}

// Status is a point-in-time view of a session for callers.
type Status struct {
	Running      bool      `json:"running"`
	LastBackupAt time.Time `json:"lastBackupAt"` // zero until the first pass completes
	Passes       int       `json:"passes"`
	Failures     int       `json:"failures"`
}

// Session owns one scheduled backup: the configuration, the repeating
// schedule, and the last-backup watermark. The watermark lives only in
// memory for the lifetime of the session; a new session starts from a
// full backup.
//
// Passes run inline in the session's single scheduling goroutine, so at
// most one pass is ever in flight. The next fire time is computed after a
// pass completes; ticks that fall due while a pass is still running are
// skipped, never overlapped.
type Session struct {
	config    Config
	sched     cron.Schedule
	onLog     func(string)
	onArchive func(Archive)

	mu         sync.Mutex
	running    bool
	done       chan struct{}
	stopped    chan struct{} // closed by the loop after its final pass returns
	lastBackup time.Time
	passes     int
	failures   int

	trigger chan struct{}
}

// NewSession validates the configuration and builds a session. The source
// root must exist and be a directory before scheduling starts; the backup
// root is created if missing. onLog receives a human-readable line per pass
// outcome; onArchive (optional, may be nil) receives every written archive.
func NewSession(cfg Config, onLog func(string), onArchive func(Archive)) (*Session, error) {
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: source root %s: %v", ErrInvalidConfig, cfg.SourceRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: source root %s is not a directory", ErrInvalidConfig, cfg.SourceRoot)
	}
	if err := os.MkdirAll(cfg.BackupRoot, 0755); err != nil {
		return nil, fmt.Errorf("%w: backup root %s: %v", ErrInvalidConfig, cfg.BackupRoot, err)
	}

	if onLog == nil {
		onLog = func(string) {}
	}
	return &Session{
		config:    cfg,
		sched:     sched,
		onLog:     onLog,
		onArchive: onArchive,
		trigger:   make(chan struct{}, 1),
	}, nil
}

// Config returns the session's immutable configuration.
func (s *Session) Config() Config {
	return s.config
}

// Start launches the scheduling loop. The first pass fires immediately,
// subsequent passes at each schedule fire, until Stop is called.
// Starting an already-running session is an error. A restart after Stop
// blocks until the previous loop's in-flight pass (if any) has finished,
// so at most one pass is ever in flight across restarts.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	prev := s.stopped
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.run(s.done, s.stopped)
	return nil
}

// Stop cancels future passes. It does not interrupt a pass already in
// progress; that pass completes or fails on its own. Stopping a session
// that is not running is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.done)
}

// TriggerBackup requests an immediate pass outside the schedule. The
// request is coalesced with any already-pending trigger and runs through
// the same scheduling goroutine, so the single-flight guarantee holds.
func (s *Session) TriggerBackup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Status reports the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:      s.running,
		LastBackupAt: s.lastBackup,
		Passes:       s.passes,
		Failures:     s.failures,
	}
}

// run is the scheduling loop. It is the only goroutine that mutates the
// watermark while it lives; closing stopped hands that role to the next loop.
func (s *Session) run(done, stopped chan struct{}) {
	defer close(stopped)

	timer := time.NewTimer(0) // first pass fires immediately
	defer timer.Stop()

	for {
		select {
		case <-done:
			return
		case <-timer.C:
		case <-s.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		// A fire can race with Stop; never start a pass after Stop returned.
		select {
		case <-done:
			return
		default:
		}

		s.runPass()

		now := time.Now()
		timer.Reset(s.sched.Next(now).Sub(now))
	}
}

// runPass executes one scan-and-archive sequence. The watermark advances to
// the pass start time after a successful pass or a no-op pass, and stays
// untouched when the pass fails.
func (s *Session) runPass() {
	start := time.Now()

	candidates, err := scanCandidates(s.config.SourceRoot, s.watermark())
	if err != nil {
		s.failPass(err)
		return
	}

	if len(candidates) == 0 {
		s.advanceWatermark(start)
		s.onLog("No new or modified files since last backup, no archive written.")
		return
	}

	name := ArchiveName(start)
	archivePath := filepath.Join(s.config.BackupRoot, name)
	size, err := writeArchive(archivePath, candidates)
	for seq := 1; errors.Is(err, os.ErrExist); seq++ {
		// Another archive from the same second exists; suffix, don't truncate.
		name = nextArchiveName(start, seq)
		archivePath = filepath.Join(s.config.BackupRoot, name)
		size, err = writeArchive(archivePath, candidates)
	}
	if err != nil {
		os.Remove(archivePath) // Clean up partial file
		s.failPass(err)
		return
	}

	s.advanceWatermark(start)
	s.onLog(fmt.Sprintf("Backup complete: %d file(s) archived to %s.", len(candidates), name))

	if s.onArchive != nil {
		s.onArchive(Archive{
			Name:      name,
			Path:      archivePath,
			Size:      size,
			FileCount: len(candidates),
			CreatedAt: start,
		})
	}
}

func (s *Session) watermark() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBackup
}

// advanceWatermark moves the watermark forward, never backwards.
func (s *Session) advanceWatermark(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastBackup) {
		s.lastBackup = t
	}
	s.passes++
}

// failPass records a failed pass. The session continues to its next
// scheduled fire; a failed pass is not retried early.
func (s *Session) failPass(err error) {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
	log.Error().Err(err).Str("source_root", s.config.SourceRoot).Msg("Backup pass failed")
	s.onLog(fmt.Sprintf("Backup pass failed: %v", err))
}
