package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const validDocument = `{
  "title": "= Valkyria Chronicles =",
  "sentences": [
    {"text": "Senjou no Valkyria.", "amr": "(v / valkyria)", "amr_metadata": "# ::id a1.sent1 ::snt Senjou no Valkyria.\n(v / valkyria)"},
    {"text": "It is a game.", "amr": "(g / game)", "amr_metadata": "# ::id a1.sent2 ::snt It is a game.\n(g / game)"}
  ]
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(validDocument))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "= Valkyria Chronicles =" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if len(doc.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(doc.Sentences))
	}
	if !strings.HasPrefix(doc.Sentences[1].AMRWithMetadata, "# ::id a1.sent2") {
		t.Fatalf("unexpected metadata %q", doc.Sentences[1].AMRWithMetadata)
	}
}

func TestParseDocumentRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "title: x"},
		{name: "no sentences", input: `{"title": "x", "sentences": []}`},
		{name: "missing sentences", input: `{"title": "x"}`},
		{name: "missing metadata amr", input: `{"sentences": [{"text": "a", "amr": "(a / b)"}]}`},
		{name: "blank metadata amr", input: `{"sentences": [{"text": "a", "amr": "(a / b)", "amr_metadata": "  "}]}`},
		{name: "unknown field", input: `{"sentences": [{"amr_metadata": "(a / b)"}], "pickle": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDocument(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

type mapLoader map[string]string

func (m mapLoader) GetDocumentBytes(_ context.Context, path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(s), nil
}

func TestLoad(t *testing.T) {
	l := mapLoader{"doc.json": validDocument}

	doc, err := Load(context.Background(), l, "doc.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(doc.Sentences))
	}

	if _, err := Load(context.Background(), l, "missing.json"); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestCacheSharesConcurrentFetches(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get("k", func() ([]byte, error) {
				calls.Add(1)
				<-release
				return []byte("v"), nil
			})
			if err != nil || string(b) != "v" {
				t.Errorf("unexpected result %q, %v", b, err)
			}
		}()
	}
	close(release)
	wg.Wait()

	if _, err := c.Get("k", func() ([]byte, error) {
		calls.Add(1)
		return []byte("other"), nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n > 8 || n < 1 {
		t.Fatalf("unexpected fetch count %d", n)
	}

	c.Forget("k")
	b, _ := c.Get("k", func() ([]byte, error) { return []byte("fresh"), nil })
	if string(b) != "fresh" {
		t.Fatalf("expected refetch after Forget, got %q", b)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := NewCache()
	if _, err := c.Get("k", func() ([]byte, error) { return nil, errors.New("boom") }); err == nil {
		t.Fatal("expected error")
	}
	b, err := c.Get("k", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(b) != "ok" {
		t.Fatalf("expected retry to succeed, got %q, %v", b, err)
	}
}
