package domain

// Category decides which output sheet an entity is reported on.
type Category string

const (
	CategoryPlant         Category = "plant"
	CategoryTopic         Category = "topic"
	CategoryVesselOwner   Category = "vessel-owner"
	CategoryVesselEcuador Category = "vessel-ecuador"
	CategoryVesselPeru    Category = "vessel-peru"
	CategoryVesselChile   Category = "vessel-chile"
)

// Categories lists every category in output-sheet order.
var Categories = []Category{
	CategoryPlant,
	CategoryTopic,
	CategoryVesselOwner,
	CategoryVesselEcuador,
	CategoryVesselPeru,
	CategoryVesselChile,
}

// Maritime reports whether entities of this category describe vessels or
// their owners, i.e. whether maritime context cues apply to them.
func (c Category) Maritime() bool {
	switch c {
	case CategoryVesselOwner, CategoryVesselEcuador, CategoryVesselPeru, CategoryVesselChile:
		return true
	}
	return false
}

// IdentifierKind tags how an identifying string is compared against text.
type IdentifierKind string

const (
	KindLegalName    IdentifierKind = "legal_name"
	KindIMO          IdentifierKind = "imo"
	KindRegistration IdentifierKind = "registration_number"
	KindKeyword      IdentifierKind = "keyword"
)

// ExactOnly reports whether values of this kind must never be fuzzy-matched.
// IMO and registration numbers are compared exactly: a near-identical number
// is a different vessel, not a spelling variant.
func (k IdentifierKind) ExactOnly() bool {
	return k == KindIMO || k == KindRegistration
}

// Identifier is one identifying string of an entity.
type Identifier struct {
	Kind IdentifierKind
	Raw  string
}

// Entity is one row of the curated registry.
type Entity struct {
	ID          string
	Category    Category
	DisplayName string
	Identifiers []Identifier
}
