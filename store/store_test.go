package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	// Shared-cache memory DBs leak across tests unless the table set is reset.
	if err := gdb.Migrator().DropTable(&Turn{}, &User{}); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	return NewWithDB(gdb)
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetUserByTelegramID(ctx, "111"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUserByTelegramID() error = %v, want ErrNotFound", err)
	}

	u := &User{TelegramID: "111", Username: "alice"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("CreateUser() did not assign id")
	}

	got, err := s.GetUserByUsername(ctx, "@alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if got.TelegramID != "111" {
		t.Fatalf("telegram id mismatch: got %s", got.TelegramID)
	}
	if got.IsVIP {
		t.Fatalf("new user must not be VIP")
	}

	if err := s.SetVIPByUsername(ctx, "alice", true); err != nil {
		t.Fatalf("SetVIPByUsername() error = %v", err)
	}
	got, err = s.GetUserByTelegramID(ctx, "111")
	if err != nil {
		t.Fatalf("GetUserByTelegramID() error = %v", err)
	}
	if !got.IsVIP {
		t.Fatalf("VIP flag not set")
	}

	if err := s.SetVIPByUsername(ctx, "nobody", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetVIPByUsername() error = %v, want ErrNotFound", err)
	}
}

func TestListVIPsAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u := &User{TelegramID: fmt.Sprintf("u%d", i), Username: fmt.Sprintf("user%d", i), IsVIP: i%2 == 0}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
	}

	vips, err := s.ListVIPs(ctx)
	if err != nil {
		t.Fatalf("ListVIPs() error = %v", err)
	}
	if len(vips) != 3 {
		t.Fatalf("vip count mismatch: got %d want 3", len(vips))
	}

	stats, err := s.GlobalStats(ctx)
	if err != nil {
		t.Fatalf("GlobalStats() error = %v", err)
	}
	if stats.TotalUsers != 5 || stats.VIPUsers != 3 {
		t.Fatalf("stats mismatch: got %+v", stats)
	}
}

func TestRecentTurnsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{TelegramID: "222", Username: "bob"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		turn := &Turn{
			UserID:    u.ID,
			Role:      RoleUser,
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	turns, err := s.RecentTurns(ctx, u.ID, 50)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turns) != 50 {
		t.Fatalf("turn count mismatch: got %d want 50", len(turns))
	}
	if turns[0].Content != "msg 59" {
		t.Fatalf("most recent first: got %q", turns[0].Content)
	}
	if turns[49].Content != "msg 10" {
		t.Fatalf("window start mismatch: got %q", turns[49].Content)
	}
	if turns[0].Kind != KindText {
		t.Fatalf("default kind mismatch: got %q", turns[0].Kind)
	}
}

func TestClearTurnsScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &User{TelegramID: "333", Username: "carol"}
	b := &User{TelegramID: "444", Username: "dave"}
	for _, u := range []*User{a, b} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() error = %v", err)
		}
		if err := s.AppendTurn(ctx, &Turn{UserID: u.ID, Role: RoleUser, Content: "hi"}); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	if err := s.ClearTurns(ctx, a.ID); err != nil {
		t.Fatalf("ClearTurns() error = %v", err)
	}
	turnsA, err := s.RecentTurns(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turnsA) != 0 {
		t.Fatalf("turns not cleared: got %d", len(turnsA))
	}
	turnsB, err := s.RecentTurns(ctx, b.ID, 10)
	if err != nil {
		t.Fatalf("RecentTurns() error = %v", err)
	}
	if len(turnsB) != 1 {
		t.Fatalf("other user's turns affected: got %d", len(turnsB))
	}
}
