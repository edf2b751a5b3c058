package mail

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mistakeknot/interlock/internal/storage/sqlite"
)

// newFileService opens a file-backed WAL store for concurrency tests; the
// in-memory store is fine for everything else but these tests exist to prove
// the transaction serialization, so they run against a real database file.
func newFileService(t *testing.T) *Service {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "race.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(sqlite.NewResilient(store))
}

// A reservation's conflict check and insert share one transaction, so
// concurrent requests for the same exclusive path must produce exactly one
// grant no matter how they interleave.
func TestConcurrentReserveSingleGrant(t *testing.T) {
	svc := newFileService(t)
	ctx := context.Background()
	mustProject(t, svc, "proj")

	const workers = 8
	for i := range workers {
		mustAgent(t, svc, "proj", fmt.Sprintf("agent-%d", i))
	}

	var (
		wg        sync.WaitGroup
		grants    atomic.Int32
		conflicts atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			resp, err := svc.ReservePaths(ctx, ReservePathsRequest{
				ProjectKey: "proj",
				AgentName:  fmt.Sprintf("agent-%d", id),
				Paths:      []string{"shared/file.go"},
				Exclusive:  true,
			})
			if err != nil {
				t.Errorf("worker %d: %v", id, err)
				return
			}
			grants.Add(int32(len(resp.Granted)))
			conflicts.Add(int32(len(resp.Conflicts)))
		}(i)
	}
	wg.Wait()

	if grants.Load() != 1 {
		t.Fatalf("grants = %d, want exactly 1 (conflicts = %d)", grants.Load(), conflicts.Load())
	}
	if conflicts.Load() != workers-1 {
		t.Fatalf("conflicts = %d, want %d", conflicts.Load(), workers-1)
	}
}

func TestConcurrentSendsAllDelivered(t *testing.T) {
	svc := newFileService(t)
	ctx := context.Background()
	mustProject(t, svc, "proj")
	mustAgent(t, svc, "proj", "inbox")

	const workers = 5
	const perWorker = 10
	for i := range workers {
		mustAgent(t, svc, "proj", fmt.Sprintf("sender-%d", i))
	}

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range perWorker {
				_, err := svc.SendMessage(ctx, SendMessageRequest{
					ProjectKey: "proj",
					SenderName: fmt.Sprintf("sender-%d", id),
					To:         []string{"inbox"},
					Subject:    fmt.Sprintf("msg-%d-%d", id, j),
				})
				if err != nil {
					t.Errorf("worker %d msg %d: %v", id, j, err)
				}
			}
		}(i)
	}
	wg.Wait()

	msgs, err := svc.FetchInbox(ctx, FetchInboxRequest{
		ProjectKey: "proj", AgentName: "inbox", Limit: workers * perWorker,
	})
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(msgs) != workers*perWorker {
		t.Fatalf("delivered %d of %d", len(msgs), workers*perWorker)
	}
}
