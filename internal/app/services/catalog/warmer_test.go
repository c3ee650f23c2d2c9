package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/R3E-Network/video_portal/pkg/logger"
)

type recordingRefresher struct {
	mu      sync.Mutex
	regions []string
	fail    string
}

func (r *recordingRefresher) RefreshTrending(_ context.Context, region string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regions = append(r.regions, region)
	if region == r.fail {
		return errors.New("quota")
	}
	return nil
}

func (r *recordingRefresher) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.regions...)
}

func TestWarmerRunOnceVisitsEveryRegion(t *testing.T) {
	src := &recordingRefresher{fail: "GB"}
	w := NewWarmer(src, []string{"US", "GB", "DE"}, "", logger.NewDiscard())
	w.RunOnce(context.Background())

	got := src.seen()
	if len(got) != 3 || got[2] != "DE" {
		t.Fatalf("regions = %v", got)
	}
}

func TestWarmerLifecycle(t *testing.T) {
	src := &recordingRefresher{}
	w := NewWarmer(src, nil, "@every 1h", logger.NewDiscard())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(src.seen()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := src.seen(); len(got) == 0 || got[0] != DefaultRegion {
		t.Fatalf("initial warm-up did not run: %v", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestWarmerRejectsBadSchedule(t *testing.T) {
	w := NewWarmer(&recordingRefresher{}, nil, "not a schedule", logger.NewDiscard())
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}
