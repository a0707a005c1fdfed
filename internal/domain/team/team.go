package team

import "github.com/dotastats/prostats/internal/domain/ident"

// Team is a professional roster. Provider team ids routinely exceed the safe
// integer range, so the id stays in canonical decimal form.
type Team struct {
	ID      ident.ID
	Name    string
	Tag     string
	LogoURL string
}
