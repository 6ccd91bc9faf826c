package source

import (
	"context"
	"testing"

	"MuPocket/model"
	"MuPocket/persist"
)

func TestRegistryFirstApiAutoSelected(t *testing.T) {
	store := persist.NewMemoryStore()
	registry := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })

	if err := registry.Add(context.Background(), model.MusicApi{ID: "a", BaseURL: "http://a"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	sel := registry.Selected.Get()
	if sel == nil || sel.ID != "a" {
		t.Fatal("first imported api should be auto-selected")
	}
	if registry.Provider() == nil {
		t.Error("provider should be built for the selected api")
	}
}

func TestRegistryOverwriteKeepsSelection(t *testing.T) {
	store := persist.NewMemoryStore()
	registry := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })
	ctx := context.Background()

	registry.Add(ctx, model.MusicApi{ID: "a", Name: "old", BaseURL: "http://a"})
	registry.Add(ctx, model.MusicApi{ID: "b", BaseURL: "http://b"})

	if err := registry.Add(ctx, model.MusicApi{ID: "a", Name: "new", BaseURL: "http://a2"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	sel := registry.Selected.Get()
	if sel == nil || sel.ID != "a" || sel.Name != "new" {
		t.Errorf("selected = %+v, want updated api a", sel)
	}
	if len(registry.Apis.Get()) != 2 {
		t.Errorf("apis = %d, want 2", len(registry.Apis.Get()))
	}
}

func TestRegistryDeleteSelectedDeselects(t *testing.T) {
	store := persist.NewMemoryStore()
	registry := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })
	ctx := context.Background()

	registry.Add(ctx, model.MusicApi{ID: "a", BaseURL: "http://a"})
	if err := registry.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if registry.Selected.Get() != nil {
		t.Error("deleting the selected api should deselect it")
	}
	if registry.Provider() != nil {
		t.Error("provider should be cleared")
	}
	if len(registry.Apis.Get()) != 0 {
		t.Error("api list should be empty")
	}
}

func TestRegistrySelectUnknown(t *testing.T) {
	store := persist.NewMemoryStore()
	registry := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })

	if err := registry.SelectByID(context.Background(), "missing"); err == nil {
		t.Error("selecting unknown api should fail")
	}
}

func TestRegistryLoadRestoresState(t *testing.T) {
	store := persist.NewMemoryStore()
	ctx := context.Background()

	first := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })
	first.Add(ctx, model.MusicApi{ID: "a", BaseURL: "http://a"})

	second := NewRegistry(store, func(model.MusicApi) Provider { return &fakeProvider{} })
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if sel := second.Selected.Get(); sel == nil || sel.ID != "a" {
		t.Error("selection should survive a reload")
	}
	if second.Provider() == nil {
		t.Error("provider should be rebuilt on load")
	}
}
