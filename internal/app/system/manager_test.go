package system

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type recordingService struct {
	name     string
	log      *[]string
	startErr error
}

func (r recordingService) Name() string { return r.name }
func (r recordingService) Start(context.Context) error {
	*r.log = append(*r.log, "start "+r.name)
	return r.startErr
}
func (r recordingService) Stop(context.Context) error {
	*r.log = append(*r.log, "stop "+r.name)
	return nil
}

func TestManagerOrdersLifecycle(t *testing.T) {
	var log []string
	m := NewManager()
	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(recordingService{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := m.Register(recordingService{name: "a", log: &log}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "late"}); err == nil {
		t.Fatal("expected registration after start to fail")
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start a", "start b", "start c", "stop c", "stop b", "stop a"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("lifecycle = %v, want %v", log, want)
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	var log []string
	m := NewManager()
	_ = m.Register(recordingService{name: "a", log: &log})
	_ = m.Register(recordingService{name: "b", log: &log, startErr: errors.New("boom")})
	_ = m.Register(recordingService{name: "c", log: &log})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	want := []string{"start a", "start b", "stop a"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("lifecycle = %v, want %v", log, want)
	}
}
