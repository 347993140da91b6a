package models

import (
	"context"
	"time"
)

// Key range for issued API keys. MaxKey is exclusive.
const (
	MinKey int64 = 1_000_000_000
	MaxKey int64 = 9_999_999_999
)

// Credential is the metadata record stored for an API key
type Credential struct {
	Org       string `json:"org"`
	AuthLevel uint64 `json:"auth_level"`
}

// CredentialRow is the SQL representation of a credential
type CredentialRow struct {
	APIKey    int64     `gorm:"primaryKey;autoIncrement:false;column:api_key"`
	Org       string    `gorm:"not null"`
	Level     uint64    `gorm:"not null"`
	CreatedAt time.Time
}

// TableName overrides the gorm default table name
func (CredentialRow) TableName() string {
	return "credentials"
}

// Credential converts the row back into a Credential
func (r *CredentialRow) Credential() Credential {
	return Credential{Org: r.Org, AuthLevel: r.Level}
}

// InKeyRange reports whether key could have been issued by this service
func InKeyRange(key int64) bool {
	return key >= MinKey && key < MaxKey
}

type credentialContextKey struct{}

// WithCredential attaches a resolved credential to the context.
func WithCredential(ctx context.Context, cred Credential) context.Context {
	return context.WithValue(ctx, credentialContextKey{}, &cred)
}

// CredentialFromContext returns the credential attached by WithCredential.
func CredentialFromContext(ctx context.Context) (Credential, bool) {
	if ctx == nil {
		return Credential{}, false
	}
	v, ok := ctx.Value(credentialContextKey{}).(*Credential)
	if !ok || v == nil {
		return Credential{}, false
	}
	return *v, true
}
