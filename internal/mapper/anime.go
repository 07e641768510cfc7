// Package mapper converts request bodies into domain entities.
package mapper

import "github.com/jbweber/homelab/animes/internal/domain"

// FromCreateRequest builds an unsaved Anime; the store assigns its ID.
func FromCreateRequest(req domain.CreateAnimeRequest) domain.Anime {
	return domain.Anime{Name: req.Name}
}

// FromUpdateRequest builds an Anime carrying the ID named in the request.
func FromUpdateRequest(req domain.UpdateAnimeRequest) domain.Anime {
	return domain.Anime{ID: req.ID, Name: req.Name}
}
