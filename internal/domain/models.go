package domain

// Anime represents a single anime title in the catalog
type Anime struct {
	ID   int64  `json:"id"`   // Unique identifier, assigned by the store
	Name string `json:"name"` // Display name
}

// CreateAnimeRequest is the body accepted when creating an anime
type CreateAnimeRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateAnimeRequest is the body accepted when replacing an existing anime
type UpdateAnimeRequest struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}
