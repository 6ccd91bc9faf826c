package engine

import (
	"testing"

	"MuPocket/model"
)

func TestMethodsRequireSetup(t *testing.T) {
	e := NewMemoryEngine()

	if err := e.Play(); err != ErrNotInitialized {
		t.Errorf("Play err = %v, want ErrNotInitialized", err)
	}
	if err := e.SetQueue(nil); err != ErrNotInitialized {
		t.Errorf("SetQueue err = %v, want ErrNotInitialized", err)
	}
	if _, err := e.PlaybackState(); err != ErrNotInitialized {
		t.Errorf("PlaybackState err = %v, want ErrNotInitialized", err)
	}

	if err := e.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := e.Play(); err != nil {
		t.Errorf("Play after setup: %v", err)
	}
}

func TestSetQueueResetsToSlotZero(t *testing.T) {
	e := NewMemoryEngine()
	e.Setup()

	tracks := []model.MusicItem{
		{ID: "a", Title: "Alpha"},
		{ID: "fake", InternalKey: model.InternalFakeSoundKey},
	}
	if err := e.SetQueue(tracks); err != nil {
		t.Fatalf("setQueue: %v", err)
	}

	idx, err := e.ActiveTrackIndex()
	if err != nil || idx != 0 {
		t.Errorf("active index = %d, want 0", idx)
	}
	active, _ := e.ActiveTrack()
	if active == nil || active.ID != "a" {
		t.Errorf("active track = %+v, want a", active)
	}

	// 队列变更应先后产生曲目切换和状态事件
	ev := <-e.Events()
	if changed, ok := ev.(ActiveTrackChangedEvent); !ok || changed.Index != 0 {
		t.Errorf("first event = %+v, want ActiveTrackChanged index 0", ev)
	}
	ev = <-e.Events()
	if state, ok := ev.(StateChangedEvent); !ok || state.State != StateReady {
		t.Errorf("second event = %+v, want StateReady", ev)
	}
}

func TestFinishCurrentMovesToSlotOne(t *testing.T) {
	e := NewMemoryEngine()
	e.Setup()
	e.SetQueue([]model.MusicItem{
		{ID: "a"},
		{ID: "fake", InternalKey: model.InternalFakeSoundKey},
	})

	// 清空入队产生的事件
	for len(e.Events()) > 0 {
		<-e.Events()
	}

	e.FinishCurrent()
	ev := <-e.Events()
	changed, ok := ev.(ActiveTrackChangedEvent)
	if !ok || changed.Index != 1 || changed.LastIndex != 0 {
		t.Errorf("event = %+v, want move from slot 0 to 1", ev)
	}
}
