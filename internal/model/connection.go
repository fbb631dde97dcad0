package model

import "time"

type Provider string

const (
	ProviderSlack     Provider = "SLACK"
	ProviderMicrosoft Provider = "MICROSOFT"
	ProviderAtlassian Provider = "ATLASSIAN"
)

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "CONNECTED"
	ConnectionDisconnected ConnectionStatus = "DISCONNECTED"
)

// Connection is a user's link to an external provider. Token material
// is stored sealed; the sync service opens it with the app encryption
// key and never persists plaintext.
type Connection struct {
	ID                    int64
	UserID                string
	Provider              Provider
	Status                ConnectionStatus
	AccountID             *string
	AccountName           *string
	Scopes                []string
	EncryptedAccessToken  *string
	EncryptedRefreshToken *string
	TokenExpiresAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
