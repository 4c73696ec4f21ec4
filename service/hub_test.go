package service

import (
	"errors"
	"strings"
	"testing"
)

type fakeService struct {
	name     string
	deps     []string
	startErr error
	log      *[]string
}

func (f *fakeService) Name() string           { return f.name }
func (f *fakeService) Dependencies() []string { return f.deps }
func (f *fakeService) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.log = append(*f.log, "start "+f.name)
	return nil
}
func (f *fakeService) Stop() error {
	*f.log = append(*f.log, "stop "+f.name)
	return nil
}

func TestHub_DependencyOrder(t *testing.T) {
	var log []string
	h := NewHub()
	h.Register(&fakeService{name: "telnet", deps: []string{"journal", "index"}, log: &log})
	h.Register(&fakeService{name: "index", log: &log})
	h.Register(&fakeService{name: "journal", log: &log})

	if err := h.StartAll(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := h.StopAll(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := "start index,start journal,start telnet,stop telnet,stop journal,stop index"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestHub_StartFailureRollsBack(t *testing.T) {
	var log []string
	h := NewHub()
	h.Register(&fakeService{name: "a", log: &log})
	h.Register(&fakeService{name: "b", deps: []string{"a"}, startErr: errors.New("bind"), log: &log})

	err := h.StartAll()
	if err == nil {
		t.Fatal("Expected start error")
	}
	if got := strings.Join(log, ","); got != "start a,stop a" {
		t.Errorf("Expected rollback of a, got %s", got)
	}
	if len(h.Started()) != 0 {
		t.Errorf("Expected nothing running, got %v", h.Started())
	}
}

func TestHub_Errors(t *testing.T) {
	var log []string
	h := NewHub()
	h.Register(&fakeService{name: "a", log: &log})
	if err := h.Register(&fakeService{name: "a", log: &log}); err == nil {
		t.Error("Expected duplicate registration error")
	}

	h = NewHub()
	h.Register(&fakeService{name: "a", deps: []string{"missing"}, log: &log})
	if err := h.StartAll(); err == nil {
		t.Error("Expected missing dependency error")
	}

	h = NewHub()
	h.Register(&fakeService{name: "a", deps: []string{"b"}, log: &log})
	h.Register(&fakeService{name: "b", deps: []string{"a"}, log: &log})
	if err := h.StartAll(); err == nil {
		t.Error("Expected cycle error")
	}
}
