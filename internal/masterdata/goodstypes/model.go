package goodstypes

import "time"

// GoodsType classifies goods models.
type GoodsType struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GoodsTypeRequest is the create/update payload.
type GoodsTypeRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=120"`
}
