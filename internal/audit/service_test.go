package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows        []TimelineRow
	err         error
	lastFilters TimelineFilters
	lastWindow  Window
}

func (s *stubTimelineRepo) Timeline(ctx context.Context, filters TimelineFilters, window Window) ([]TimelineRow, error) {
	s.lastFilters = filters
	s.lastWindow = window
	if s.err != nil {
		return nil, s.err
	}
	if window.Limit > 0 && len(s.rows) > window.Limit {
		return s.rows[:window.Limit], nil
	}
	return s.rows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []TimelineRow{
			mockRow(3, "2026-03-10T10:00:00Z", "u-1", "DOCUMENT_CREATE", 11, "GR-20260310-00001"),
			mockRow(2, "2026-03-09T09:00:00Z", "u-1", "DOCUMENT_RECEIVING", 10, "GR-20260309-00001"),
			mockRow(1, "2026-03-08T08:00:00Z", "u-2", "DOCUMENT_CREATE", 10, "GR-20260309-00001"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		OrganizationID: 1,
		From:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:             time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Action:         " document_create ",
		Page:           1,
		PageSize:       2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %+v", result.Paging)
	}
	if repo.lastWindow.Limit != 3 || repo.lastWindow.Offset != 0 {
		t.Fatalf("unexpected window %+v", repo.lastWindow)
	}
	if repo.lastFilters.Action != "DOCUMENT_CREATE" {
		t.Fatalf("expected normalised action, got %q", repo.lastFilters.Action)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{OrganizationID: 1, Page: 3, PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastWindow.Limit != maxPageSize+1 || repo.lastWindow.Offset != 2*maxPageSize {
		t.Fatalf("unexpected window %+v", repo.lastWindow)
	}
	if result.Rows == nil || len(result.Rows) != 0 {
		t.Fatalf("expected empty non-nil rows")
	}
	if result.Paging.PrevPage != 2 || result.Paging.HasNext {
		t.Fatalf("unexpected paging %+v", result.Paging)
	}

	if _, err := svc.Timeline(context.Background(), TimelineFilters{OrganizationID: 1}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastWindow.Limit != defaultPageSize+1 {
		t.Fatalf("expected default page size, got %+v", repo.lastWindow)
	}
}

func TestServiceErrors(t *testing.T) {
	if _, err := NewService(nil).Timeline(context.Background(), TimelineFilters{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	boom := errors.New("boom")
	_, err := NewService(&stubTimelineRepo{err: boom}).Timeline(context.Background(), TimelineFilters{OrganizationID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func mockRow(id int64, ts, actor, action string, documentID int64, code string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{
		ID:           id,
		At:           at,
		Actor:        actor,
		Action:       action,
		DocumentID:   documentID,
		DocumentType: "GR",
		DocumentCode: code,
		Meta:         map[string]any{"code": code},
	}
}
