package controller

import (
	"errors"
	"testing"

	"github.com/Mez0/TempBox/internal/models"
)

func TestMergeMessage(t *testing.T) {
	tests := []struct {
		name string
		old  models.Message
		new  models.Message
		want models.Message
	}{
		{
			name: "summary over summary takes new fields",
			old:  models.Message{ID: "m", Subject: "old", Intro: ""},
			new:  models.Message{ID: "m", Subject: "new", Intro: "preview"},
			want: models.Message{ID: "m", Subject: "new", Intro: "preview"},
		},
		{
			name: "non-empty intro survives empty update",
			old:  models.Message{ID: "m", Intro: "Hello"},
			new:  models.Message{ID: "m", Intro: ""},
			want: models.Message{ID: "m", Intro: "Hello"},
		},
		{
			name: "summary becomes complete",
			old:  models.Message{ID: "m", Intro: "Hello"},
			new:  models.Message{ID: "m", Text: "full body", IsComplete: true},
			want: models.Message{ID: "m", Intro: "Hello", Text: "full body", IsComplete: true},
		},
		{
			name: "complete never regresses to summary",
			old:  models.Message{ID: "m", Intro: "Hello", Text: "full body", HTML: []string{"<p>hi</p>"}, IsComplete: true},
			new:  models.Message{ID: "m", Intro: "Hello", Seen: true},
			want: models.Message{ID: "m", Intro: "Hello", Text: "full body", HTML: []string{"<p>hi</p>"}, Seen: true, IsComplete: true},
		},
		{
			name: "complete over complete takes new body",
			old:  models.Message{ID: "m", Text: "v1", IsComplete: true},
			new:  models.Message{ID: "m", Text: "v2", IsComplete: true},
			want: models.Message{ID: "m", Text: "v2", IsComplete: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeMessage(tt.old, tt.new)
			if got.Intro != tt.want.Intro {
				t.Errorf("Intro = %q, want %q", got.Intro, tt.want.Intro)
			}
			if got.Text != tt.want.Text {
				t.Errorf("Text = %q, want %q", got.Text, tt.want.Text)
			}
			if got.Seen != tt.want.Seen {
				t.Errorf("Seen = %v, want %v", got.Seen, tt.want.Seen)
			}
			if got.IsComplete != tt.want.IsComplete {
				t.Errorf("IsComplete = %v, want %v", got.IsComplete, tt.want.IsComplete)
			}
			if len(got.HTML) != len(tt.want.HTML) {
				t.Errorf("HTML = %v, want %v", got.HTML, tt.want.HTML)
			}
		})
	}
}

// bareController returns a controller suitable for driving the
// loop-only helpers directly, without starting the loop.
func bareController() *Controller {
	return New(Config{}, nil, nil, nil, nil, nil)
}

func TestUpsertInsertAndMerge(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{}

	if !c.upsert("a", models.Message{ID: "m1", Intro: "Hello"}) {
		t.Fatal("first upsert should report an insert")
	}
	if c.upsert("a", models.Message{ID: "m1", Intro: ""}) {
		t.Fatal("second upsert of the same id should merge, not insert")
	}

	store := c.stores["a"]
	if len(store.Messages) != 1 {
		t.Fatalf("store holds %d messages, want 1", len(store.Messages))
	}
	if store.Messages[0].Intro != "Hello" {
		t.Errorf("Intro = %q, want %q", store.Messages[0].Intro, "Hello")
	}
}

func TestUpsertWithoutStoreIsDropped(t *testing.T) {
	c := bareController()

	if c.upsert("gone", models.Message{ID: "m1"}) {
		t.Fatal("upsert for an inactive account must report no insert")
	}
	if _, ok := c.stores["gone"]; ok {
		t.Fatal("upsert must not resurrect a store")
	}
}

func TestUpsertRefreshesSelectedMessage(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{Messages: []models.Message{{ID: "m1"}}}
	c.selection = models.Selection{AccountID: "a", MessageID: "m1"}

	c.upsert("a", models.Message{ID: "m1", Seen: true})

	if c.selected == nil || !c.selected.Seen {
		t.Fatal("selected backing value should track the merged message")
	}
}

func TestRemoveMessageClearsSelection(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{Messages: []models.Message{{ID: "m1"}, {ID: "m2"}}}
	c.selection = models.Selection{AccountID: "a", MessageID: "m1"}
	c.selected = &models.Message{ID: "m1"}

	c.removeMessage("a", "m1")

	if got := len(c.stores["a"].Messages); got != 1 {
		t.Fatalf("store holds %d messages, want 1", got)
	}
	if !c.selection.IsZero() {
		t.Errorf("selection = %+v, want zero", c.selection)
	}
	if c.selected != nil {
		t.Error("selected backing value should be cleared")
	}
}

func TestRemoveMessageKeepsUnrelatedSelection(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{Messages: []models.Message{{ID: "m1"}, {ID: "m2"}}}
	c.selection = models.Selection{AccountID: "a", MessageID: "m2"}

	c.removeMessage("a", "m1")

	if c.selection.MessageID != "m2" {
		t.Errorf("selection = %+v, want m2 kept", c.selection)
	}
}

func TestBulkReplaceSuccess(t *testing.T) {
	c := bareController()
	c.stores["a"] = models.NewFetchingStore()

	c.bulkReplace("a", []models.Message{{ID: "m1"}, {ID: "m2"}}, nil)

	store := c.stores["a"]
	if store.IsFetching {
		t.Error("IsFetching should be cleared")
	}
	if store.Err != nil {
		t.Errorf("Err = %v, want nil", store.Err)
	}
	if len(store.Messages) != 2 {
		t.Errorf("store holds %d messages, want 2", len(store.Messages))
	}
}

func TestBulkReplaceFailure(t *testing.T) {
	c := bareController()
	c.stores["a"] = models.NewFetchingStore()

	fetchErr := errors.New("boom")
	c.bulkReplace("a", nil, fetchErr)

	store := c.stores["a"]
	if store.IsFetching {
		t.Error("IsFetching should be cleared")
	}
	if !errors.Is(store.Err, fetchErr) {
		t.Errorf("Err = %v, want %v", store.Err, fetchErr)
	}
	if len(store.Messages) != 0 {
		t.Errorf("store holds %d messages, want 0", len(store.Messages))
	}
}

func TestBulkReplaceDropsVanishedSelection(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{Messages: []models.Message{{ID: "m1"}}}
	c.selection = models.Selection{AccountID: "a", MessageID: "m1"}
	c.selected = &models.Message{ID: "m1"}

	c.bulkReplace("a", []models.Message{{ID: "m2"}}, nil)

	if !c.selection.IsZero() {
		t.Errorf("selection = %+v, want cleared", c.selection)
	}
}

func TestBulkReplaceFreshensSelection(t *testing.T) {
	c := bareController()
	c.stores["a"] = &models.MessageStore{Messages: []models.Message{{ID: "m1"}}}
	c.selection = models.Selection{AccountID: "a", MessageID: "m1"}

	c.bulkReplace("a", []models.Message{{ID: "m1", Seen: true}}, nil)

	if c.selected == nil || !c.selected.Seen {
		t.Fatal("selection should point at the fresher representation")
	}
}
