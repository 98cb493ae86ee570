package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// ErrNotConfigured dikembalikan ketika repository belum dipasang.
var ErrNotConfigured = errors.New("audit: repository not configured")

// Window membatasi baris yang diambil dari audit_logs.
type Window struct {
	Offset int
	Limit  int
}

// Repository menyediakan akses baca ke audit_logs.
type Repository interface {
	Timeline(ctx context.Context, filters TimelineFilters, window Window) ([]TimelineRow, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit timeline baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil data audit dengan paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, ErrNotConfigured
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Timeline(ctx, normalise(filters), Window{Offset: (page - 1) * pageSize, Limit: pageSize + 1})
	if err != nil {
		return Result{}, fmt.Errorf("audit timeline: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

func normalise(f TimelineFilters) TimelineFilters {
	f.Actor = strings.TrimSpace(f.Actor)
	f.Action = strings.ToUpper(strings.TrimSpace(f.Action))
	return f
}
