package league

import "github.com/dotastats/prostats/internal/domain/ident"

// League is one tournament or league the provider attributes matches to.
type League struct {
	ID   ident.ID
	Name string
	Tier string
}
