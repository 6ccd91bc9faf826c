package model

import "testing"

func TestSameMediaItem(t *testing.T) {
	a := &MusicItem{ID: "1", Platform: "netease", URL: "http://a"}
	b := &MusicItem{ID: "1", Platform: "netease", URL: "http://b", Artwork: "cover"}
	if !SameMediaItem(a, b) {
		t.Error("items with same id and platform should match regardless of other fields")
	}

	c := &MusicItem{ID: "1", Platform: "qq"}
	if SameMediaItem(a, c) {
		t.Error("items on different platforms should not match")
	}
	if SameMediaItem(nil, a) || SameMediaItem(a, nil) {
		t.Error("nil items should never match")
	}
}

func TestHasUsableURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"", false},
		{UnknownURL, false},
		{FakeAudioURL, false},
		{"asset://fake_audio.mp3", false},
		{"http://cdn.example.com/a.mp3", true},
		{"file:///data/musicCache/a.mp3", true},
	}
	for _, c := range cases {
		m := &MusicItem{URL: c.url}
		if got := m.HasUsableURL(); got != c.want {
			t.Errorf("HasUsableURL(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestSortByTimestampAndIndex(t *testing.T) {
	list := []MusicItem{
		{ID: "c", TimeStamp: 200, SortIndex: 0},
		{ID: "b", TimeStamp: 100, SortIndex: 1},
		{ID: "a", TimeStamp: 100, SortIndex: 0},
	}
	sorted := SortByTimestampAndIndex(list)

	want := []string{"a", "b", "c"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, sorted[i].ID, id)
		}
	}
	if list[0].ID != "c" {
		t.Error("input slice should not be mutated")
	}
}

func TestIndexOf(t *testing.T) {
	list := []MusicItem{
		{ID: "a", Platform: "netease"},
		{ID: "b", Platform: "netease"},
	}
	if got := IndexOf(list, &MusicItem{ID: "b", Platform: "netease"}); got != 1 {
		t.Errorf("IndexOf = %d, want 1", got)
	}
	if got := IndexOf(list, &MusicItem{ID: "b", Platform: "qq"}); got != -1 {
		t.Errorf("IndexOf with wrong platform = %d, want -1", got)
	}
	if got := IndexOf(list, nil); got != -1 {
		t.Errorf("IndexOf(nil) = %d, want -1", got)
	}
}

func TestNextRepeatMode(t *testing.T) {
	if NextRepeatMode(RepeatQueue) != RepeatShuffle {
		t.Error("QUEUE should cycle to SHUFFLE")
	}
	if NextRepeatMode(RepeatShuffle) != RepeatSingle {
		t.Error("SHUFFLE should cycle to SINGLE")
	}
	if NextRepeatMode(RepeatSingle) != RepeatQueue {
		t.Error("SINGLE should cycle to QUEUE")
	}
}

func TestQualityCacheExt(t *testing.T) {
	if QualityFlac.CacheExt() != "flac" {
		t.Error("flac quality should map to flac extension")
	}
	if Quality320k.CacheExt() != "mp3" || Quality128k.CacheExt() != "mp3" {
		t.Error("lossy qualities should map to mp3 extension")
	}
}

func TestQualityIndex(t *testing.T) {
	if QualityIndex(QualityFlac) != 0 || QualityIndex(Quality320k) != 1 || QualityIndex(Quality128k) != 2 {
		t.Error("quality order should be flac, 320k, 128k")
	}
	if QualityIndex(Quality("64k")) != -1 {
		t.Error("unknown quality should return -1")
	}
}
