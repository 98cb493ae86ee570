package audit

import "time"

// TimelineFilters menampung filter dasar untuk audit timeline dokumen.
type TimelineFilters struct {
	OrganizationID int64
	From           time.Time
	To             time.Time
	Actor          string
	Action         string
	DocumentID     int64
	Page           int
	PageSize       int
}

// TimelineRow mewakili satu baris audit timeline.
type TimelineRow struct {
	ID           int64          `json:"id"`
	At           time.Time      `json:"occurred_at"`
	Actor        string         `json:"actor_id"`
	Action       string         `json:"action"`
	DocumentID   int64          `json:"document_id"`
	DocumentType string         `json:"document_type"`
	DocumentCode string         `json:"document_code"`
	Meta         map[string]any `json:"meta"`
}

// PagingInfo menyimpan metadata pagination sederhana.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []TimelineRow `json:"data"`
	Paging PagingInfo    `json:"paging"`
}
