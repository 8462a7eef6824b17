package identity

import "time"

// Identity is one wallet-controlled account keyed by its checksummed address.
type Identity struct {
	ID          string
	Address     string
	Nonce       string
	DisplayName *string
	Email       *string
	Bio         *string
	AvatarURL   *string
	Attributes  []Attribute
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attribute is a free-form key/value profile extension. Field is unique per identity.
type Attribute struct {
	Field string
	Value string
}

// ProfilePatch carries optional scalar updates. Nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	Email       *string
	Bio         *string
	AvatarURL   *string
}

// ProfileUpdate is applied as one unit together with a nonce swap.
type ProfileUpdate struct {
	ProfilePatch
	// ReplaceAttributes makes Attributes the complete stored set: listed fields
	// are upserted and every other stored field is deleted. When false the
	// stored rows are not touched.
	ReplaceAttributes bool
	Attributes        []Attribute
}

func (p ProfilePatch) apply(id *Identity) {
	if p.DisplayName != nil {
		id.DisplayName = copyString(p.DisplayName)
	}
	if p.Email != nil {
		id.Email = copyString(p.Email)
	}
	if p.Bio != nil {
		id.Bio = copyString(p.Bio)
	}
	if p.AvatarURL != nil {
		id.AvatarURL = copyString(p.AvatarURL)
	}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
