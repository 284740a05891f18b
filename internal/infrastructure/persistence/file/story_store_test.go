package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sherry-reader/pkg/errors"
)

func writeNovel(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func newTestStore(t *testing.T) *StoryStore {
	t.Helper()
	dir := t.TempDir()
	writeNovel(t, dir, "b-story.json", `{"id":"b-story","title":"乙","author":"某人","description":"第二本","summary":"乙的摘要","tags":["悬疑"]}`)
	writeNovel(t, dir, "a-story.json", `{"id":"a-story","title":"甲","author":"某人","description":"第一本","tags":["都市"]}`)
	writeNovel(t, dir, "broken.json", `{not json`)
	writeNovel(t, dir, "notes.txt", "不是小说")
	return NewStoryStore(dir)
}

func TestStoryStoreList(t *testing.T) {
	store := newTestStore(t)

	summaries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// broken.json 被跳过，notes.txt 不参与扫描，结果按 id 排序
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2: %+v", len(summaries), summaries)
	}
	if summaries[0].ID != "a-story" || summaries[1].ID != "b-story" {
		t.Errorf("order = [%s %s], want [a-story b-story]", summaries[0].ID, summaries[1].ID)
	}
	if summaries[0].Description != "第一本" {
		t.Errorf("description = %q, want 第一本", summaries[0].Description)
	}
	// summary 字段优先于 description
	if summaries[1].Description != "乙的摘要" {
		t.Errorf("description = %q, want summary 乙的摘要", summaries[1].Description)
	}
}

func TestStoryStoreGet(t *testing.T) {
	store := newTestStore(t)

	story, err := store.Get(context.Background(), "a-story")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if story.Title != "甲" {
		t.Errorf("title = %q, want 甲", story.Title)
	}

	_, err = store.Get(context.Background(), "missing")
	if appErr := errors.AsAppError(err); appErr.Code != errors.CodeStoryNotFound {
		t.Errorf("Get(missing) code = %s, want %s", appErr.Code, errors.CodeStoryNotFound)
	}

	_, err = store.Get(context.Background(), "broken")
	if appErr := errors.AsAppError(err); appErr.Code != errors.CodeStoryParseFailed {
		t.Errorf("Get(broken) code = %s, want %s", appErr.Code, errors.CodeStoryParseFailed)
	}
}

func TestStoryStoreGetRaw(t *testing.T) {
	store := newTestStore(t)

	raw, err := store.GetRaw(context.Background(), "broken")
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	// 原始读取不做解析，校验器需要拿到坏文件原文
	if string(raw) != `{not json` {
		t.Errorf("raw = %q", raw)
	}
}

func TestStoryStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"", "../etc/passwd", `..\secret`, "a/b"} {
		if _, err := store.Get(context.Background(), id); err == nil {
			t.Errorf("Get(%q) should be rejected", id)
		}
	}
}
