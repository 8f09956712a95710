package state

import "testing"

func TestNewSetsQueryThreadIDAndStartedAt(t *testing.T) {
	s := New("thread-1", "how do go generics work")
	if s.Query != "how do go generics work" || s.ThreadID != "thread-1" {
		t.Errorf("got Query=%q ThreadID=%q", s.Query, s.ThreadID)
	}
	if s.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}
	if s.IsEnded() {
		t.Error("expected a fresh state not to be ended")
	}
}

func TestHasURL(t *testing.T) {
	s := New("t", "q")
	s.ReadContents = append(s.ReadContents, PageContent{URL: "https://a.example", Status: PageOK})
	if !s.HasURL("https://a.example") {
		t.Error("expected HasURL to find a recorded URL")
	}
	if s.HasURL("https://missing.example") {
		t.Error("expected HasURL to reject an unrecorded URL")
	}
}

func TestSourceIsKnownViaReadContents(t *testing.T) {
	s := New("t", "q")
	s.ReadContents = append(s.ReadContents, PageContent{URL: "https://a.example", Status: PageOK})
	if !s.SourceIsKnown("https://a.example") {
		t.Error("expected a page fetched with status ok to be a known source")
	}
}

func TestSourceIsKnownRejectsNonOKPage(t *testing.T) {
	s := New("t", "q")
	s.ReadContents = append(s.ReadContents, PageContent{URL: "https://a.example", Status: PageError})
	if s.SourceIsKnown("https://a.example") {
		t.Error("expected a page fetched with a non-ok status not to count as a known source")
	}
}

func TestSourceIsKnownViaSearchHistory(t *testing.T) {
	s := New("t", "q")
	s.SearchHistory = append(s.SearchHistory, SearchRecord{Query: "q", ResultURLs: []string{"https://b.example"}})
	if !s.SourceIsKnown("https://b.example") {
		t.Error("expected a URL surfaced by search history to be a known source")
	}
}

func TestIsEndedAfterSettingEndedAt(t *testing.T) {
	s := New("t", "q")
	now := *s.StartedAt
	s.EndedAt = &now
	if !s.IsEnded() {
		t.Error("expected IsEnded to be true once EndedAt is set")
	}
}
