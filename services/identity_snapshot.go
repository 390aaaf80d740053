// services/identity_snapshot.go
package services

import (
	"encoding/json"
	"fmt"
)

const (
	AccountTypeTwitterOAuth = "twitter_oauth"
	AccountTypeWallet       = "wallet"
	AccountTypeSmartWallet  = "smart_wallet"
)

// LinkedAccount is one entry of the identity token's linked_accounts list.
// Only "type" is guaranteed; every other field depends on the type.
type LinkedAccount map[string]any

func (a LinkedAccount) Type() string {
	t, _ := a["type"].(string)
	return t
}

// OptString returns the field as a string pointer, or nil when the field is
// absent, null or not a string.
func (a LinkedAccount) OptString(key string) *string {
	s, ok := a[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// String returns the field, or "" when absent or not a string.
func (a LinkedAccount) String(key string) string {
	s, _ := a[key].(string)
	return s
}

func (a LinkedAccount) IsWallet() bool {
	t := a.Type()
	return t == AccountTypeWallet || t == AccountTypeSmartWallet
}

// IdentitySnapshot is the decoded linked-identity payload of an identity token.
type IdentitySnapshot struct {
	Subject        string
	LinkedAccounts []LinkedAccount
	CustomMetadata map[string]any
}

// ParseIdentitySnapshot decodes the JSON-in-a-string claims of an identity
// token. A malformed claim is a hard failure.
func ParseIdentitySnapshot(claims ClaimSet) (*IdentitySnapshot, error) {
	snapshot := &IdentitySnapshot{
		Subject:        claims.Subject(),
		LinkedAccounts: []LinkedAccount{},
		CustomMetadata: map[string]any{},
	}

	raw, present, err := embeddedJSON(claims, "linked_accounts")
	if err != nil {
		return nil, err
	}
	if present {
		var accounts []LinkedAccount
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return nil, &MalformedPayloadError{Field: "linked_accounts", Cause: err}
		}
		for i, acct := range accounts {
			if acct == nil {
				return nil, &MalformedPayloadError{Field: "linked_accounts", Cause: fmt.Errorf("entry %d is not an object", i)}
			}
		}
		if accounts != nil {
			snapshot.LinkedAccounts = accounts
		}
	}

	raw, present, err = embeddedJSON(claims, "custom_metadata")
	if err != nil {
		return nil, err
	}
	// An empty custom_metadata string means no metadata.
	if present && len(raw) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, &MalformedPayloadError{Field: "custom_metadata", Cause: err}
		}
		if metadata != nil {
			snapshot.CustomMetadata = metadata
		}
	}

	return snapshot, nil
}

// embeddedJSON returns the raw JSON of a claim that is normally a JSON
// document encoded as a string. Already-decoded values are re-encoded.
// present is false for an absent or null claim.
func embeddedJSON(claims ClaimSet, field string) (raw []byte, present bool, err error) {
	value, ok := claims[field]
	if !ok || value == nil {
		return nil, false, nil
	}

	switch v := value.(type) {
	case string:
		return []byte(v), true, nil
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, true, &MalformedPayloadError{Field: field, Cause: err}
		}
		return b, true, nil
	default:
		return nil, true, &MalformedPayloadError{Field: field, Cause: fmt.Errorf("unexpected claim type %T", value)}
	}
}
