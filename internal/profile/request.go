package profile

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/validation"
)

const (
	maxDisplayName = 64
	maxBio         = 1024
	maxAvatarURL   = 2048
	maxExtraFields = 50
	maxFieldName   = 64
	maxFieldValue  = 1024
)

type extraField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// updateRequest distinguishes an absent extraFields (leave rows alone) from
// an empty list (delete every row) through the pointer.
type updateRequest struct {
	WalletAddress string        `json:"walletAddress"`
	DisplayName   *string       `json:"displayName"`
	Email         *string       `json:"email"`
	Bio           *string       `json:"bio"`
	AvatarURL     *string       `json:"avatarUrl"`
	ExtraFields   *[]extraField `json:"extraFields"`
	Signature     string        `json:"signature"`
}

// Validate checks request shape and returns the first offending field.
func (r updateRequest) Validate() error {
	if strings.TrimSpace(r.WalletAddress) == "" {
		return validation.Errorf("walletAddress", "is required")
	}
	if strings.TrimSpace(r.Signature) == "" {
		return validation.Errorf("signature", "is required")
	}
	if r.DisplayName != nil && utf8.RuneCountInString(*r.DisplayName) > maxDisplayName {
		return validation.Errorf("displayName", "must be at most %d characters", maxDisplayName)
	}
	if r.Email != nil && *r.Email != "" {
		addr, err := mail.ParseAddress(*r.Email)
		if err != nil || addr.Address != *r.Email {
			return validation.Errorf("email", "must be a valid email address")
		}
	}
	if r.Bio != nil && utf8.RuneCountInString(*r.Bio) > maxBio {
		return validation.Errorf("bio", "must be at most %d characters", maxBio)
	}
	if r.AvatarURL != nil && *r.AvatarURL != "" {
		if err := validateURL(*r.AvatarURL); err != nil {
			return err
		}
	}
	if r.ExtraFields != nil {
		return validateExtraFields(*r.ExtraFields)
	}
	return nil
}

func validateURL(raw string) error {
	if len(raw) > maxAvatarURL {
		return validation.Errorf("avatarUrl", "must be at most %d characters", maxAvatarURL)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation.Errorf("avatarUrl", "must be an absolute http(s) URL")
	}
	return nil
}

func validateExtraFields(fields []extraField) error {
	if len(fields) > maxExtraFields {
		return validation.Errorf("extraFields", "must contain at most %d entries", maxExtraFields)
	}
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		name := strings.TrimSpace(f.Field)
		key := fmt.Sprintf("extraFields[%d].field", i)
		switch {
		case name == "":
			return validation.Errorf(key, "is required")
		case utf8.RuneCountInString(name) > maxFieldName:
			return validation.Errorf(key, "must be at most %d characters", maxFieldName)
		}
		if _, dup := seen[name]; dup {
			return validation.Errorf(key, "duplicates field %q", name)
		}
		seen[name] = struct{}{}
		if utf8.RuneCountInString(f.Value) > maxFieldValue {
			return validation.Errorf(fmt.Sprintf("extraFields[%d].value", i), "must be at most %d characters", maxFieldValue)
		}
	}
	return nil
}

func (r updateRequest) input() UpdateInput {
	in := UpdateInput{
		WalletAddress: r.WalletAddress,
		Signature:     r.Signature,
		Patch: identity.ProfilePatch{
			DisplayName: r.DisplayName,
			Email:       r.Email,
			Bio:         r.Bio,
			AvatarURL:   r.AvatarURL,
		},
	}
	if r.ExtraFields != nil {
		attrs := make([]identity.Attribute, 0, len(*r.ExtraFields))
		for _, f := range *r.ExtraFields {
			attrs = append(attrs, identity.Attribute{Field: strings.TrimSpace(f.Field), Value: f.Value})
		}
		in.Attributes = &attrs
	}
	return in
}
