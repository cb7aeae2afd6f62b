package model

import (
	"encoding/json"
	"fmt"
)

// OwnerKind distinguishes authenticated accounts from anonymous guests.
type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerGuest   OwnerKind = "guest"
)

// Owner identifies who a cart or order belongs to. It is either an account
// or a guest token, never both; the zero value owns nothing.
type Owner struct {
	kind OwnerKind
	id   string
}

// AccountOwner returns an owner for an authenticated account.
func AccountOwner(accountID string) Owner {
	return Owner{kind: OwnerAccount, id: accountID}
}

// GuestOwner returns an owner for an anonymous guest token.
func GuestOwner(token string) Owner {
	return Owner{kind: OwnerGuest, id: token}
}

// OwnerFromColumns rebuilds an owner from the nullable account/guest columns.
func OwnerFromColumns(accountID, guestToken *string) (Owner, error) {
	switch {
	case accountID != nil && guestToken == nil:
		return AccountOwner(*accountID), nil
	case accountID == nil && guestToken != nil:
		return GuestOwner(*guestToken), nil
	default:
		return Owner{}, fmt.Errorf("owner must be exactly one of account or guest")
	}
}

func (o Owner) Kind() OwnerKind { return o.kind }

func (o Owner) IsZero() bool { return o.id == "" }

func (o Owner) IsAccount() bool { return o.kind == OwnerAccount && o.id != "" }

func (o Owner) IsGuest() bool { return o.kind == OwnerGuest && o.id != "" }

// AccountID returns the account id and true when the owner is an account.
func (o Owner) AccountID() (string, bool) {
	if !o.IsAccount() {
		return "", false
	}
	return o.id, true
}

// GuestToken returns the guest token and true when the owner is a guest.
func (o Owner) GuestToken() (string, bool) {
	if !o.IsGuest() {
		return "", false
	}
	return o.id, true
}

// Columns splits the owner into the nullable account/guest column values.
func (o Owner) Columns() (accountID, guestToken *string) {
	id := o.id
	switch o.kind {
	case OwnerAccount:
		return &id, nil
	case OwnerGuest:
		return nil, &id
	}
	return nil, nil
}

func (o Owner) String() string {
	if o.IsZero() {
		return "none"
	}
	return string(o.kind) + ":" + o.id
}

type ownerJSON struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

// MarshalJSON exposes the owner kind and identifier.
func (o Owner) MarshalJSON() ([]byte, error) {
	return json.Marshal(ownerJSON{Kind: o.kind, ID: o.id})
}
