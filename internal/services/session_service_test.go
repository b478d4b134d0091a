package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sprey412/backup-be/internal/backup"
)

func newSessionService(t *testing.T) (*SessionService, *ArchiveService) {
	t.Helper()
	db := newTestDB(t)
	eventSvc := NewEventService(db, nil)
	archiveSvc := NewArchiveService(db, eventSvc)
	return NewSessionService(archiveSvc, eventSvc, t.TempDir()), archiveSvc
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestSessionService_StartSession(t *testing.T) {
	t.Run("invalid source root", func(t *testing.T) {
		svc, _ := newSessionService(t)
		_, err := svc.StartSession(filepath.Join(t.TempDir(), "nope"), "", 1, "")
		if !errors.Is(err, backup.ErrInvalidConfig) {
			t.Errorf("StartSession() error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("invalid interval", func(t *testing.T) {
		svc, _ := newSessionService(t)
		_, err := svc.StartSession(t.TempDir(), "", 0, "")
		if !errors.Is(err, backup.ErrInvalidConfig) {
			t.Errorf("StartSession() error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("first pass is cataloged", func(t *testing.T) {
		svc, archiveSvc := newSessionService(t)

		src := t.TempDir()
		if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		session, err := svc.StartSession(src, "", 60, "")
		if err != nil {
			t.Fatalf("StartSession() error = %v", err)
		}
		defer svc.StopSession(session.ID)

		waitFor(t, 5*time.Second, func() bool {
			archives, err := archiveSvc.GetArchivesForSession(session.ID)
			return err == nil && len(archives) == 1
		}, "first archive was not cataloged")

		archives, err := archiveSvc.GetArchivesForSession(session.ID)
		if err != nil {
			t.Fatalf("GetArchivesForSession() error = %v", err)
		}
		if archives[0].FileCount != 1 {
			t.Errorf("FileCount = %d, want 1", archives[0].FileCount)
		}
		if _, err := os.Stat(archives[0].Path); err != nil {
			t.Errorf("cataloged archive file missing: %v", err)
		}
	})
}

func TestSessionService_Registry(t *testing.T) {
	svc, _ := newSessionService(t)

	src := t.TempDir()
	session, err := svc.StartSession(src, "", 60, "")
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	t.Run("get by id", func(t *testing.T) {
		got, err := svc.GetSessionByID(session.ID)
		if err != nil {
			t.Fatalf("GetSessionByID() error = %v", err)
		}
		if got.SourceRoot != src {
			t.Errorf("SourceRoot = %q, want %q", got.SourceRoot, src)
		}
		if !got.Status.Running {
			t.Error("Status.Running = false for a started session")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := svc.GetSessionByID("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("GetSessionByID(nope) error = %v, want ErrSessionNotFound", err)
		}
		if err := svc.StopSession("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("StopSession(nope) error = %v, want ErrSessionNotFound", err)
		}
		if err := svc.RemoveSession("nope"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("RemoveSession(nope) error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("stop keeps session listed", func(t *testing.T) {
		if err := svc.StopSession(session.ID); err != nil {
			t.Fatalf("StopSession() error = %v", err)
		}
		got, err := svc.GetSessionByID(session.ID)
		if err != nil {
			t.Fatalf("GetSessionByID() after stop error = %v", err)
		}
		if got.Status.Running {
			t.Error("Status.Running = true after StopSession")
		}
	})

	t.Run("trigger on stopped session", func(t *testing.T) {
		if err := svc.TriggerBackup(session.ID); !errors.Is(err, backup.ErrNotRunning) {
			t.Errorf("TriggerBackup() error = %v, want ErrNotRunning", err)
		}
	})

	t.Run("remove drops session", func(t *testing.T) {
		if err := svc.RemoveSession(session.ID); err != nil {
			t.Fatalf("RemoveSession() error = %v", err)
		}
		if _, err := svc.GetSessionByID(session.ID); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("GetSessionByID() after remove error = %v, want ErrSessionNotFound", err)
		}
		if len(svc.GetAllSessions()) != 0 {
			t.Error("GetAllSessions() not empty after remove")
		}
	})
}

func TestUserService(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db)

	user, err := svc.CreateUser("operator", "op@example.com", "hunter22")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("CreateUser() returned the password hash")
	}

	t.Run("authenticate with correct password", func(t *testing.T) {
		got, err := svc.AuthenticateUser("op@example.com", "hunter22")
		if err != nil {
			t.Fatalf("AuthenticateUser() error = %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("authenticated user ID = %q, want %q", got.ID, user.ID)
		}
	})

	t.Run("reject wrong password", func(t *testing.T) {
		if _, err := svc.AuthenticateUser("op@example.com", "wrong"); err == nil {
			t.Fatal("AuthenticateUser() error = nil, want error")
		}
	})

	t.Run("update password", func(t *testing.T) {
		if err := svc.UpdatePassword(user.ID, "hunter22", "correct horse"); err != nil {
			t.Fatalf("UpdatePassword() error = %v", err)
		}
		if _, err := svc.AuthenticateUser("op@example.com", "hunter22"); err == nil {
			t.Error("old password still accepted")
		}
		if _, err := svc.AuthenticateUser("op@example.com", "correct horse"); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
	})

	t.Run("reject update with wrong current password", func(t *testing.T) {
		if err := svc.UpdatePassword(user.ID, "wrong", "whatever"); err == nil {
			t.Fatal("UpdatePassword() error = nil, want error")
		}
	})
}
