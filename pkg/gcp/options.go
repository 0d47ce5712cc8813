// Package gcp holds the client options shared by the Google Cloud SDK clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/clips-backend/pkg/config"
)

// ClientOptions picks credentials from cfg: inline JSON first, then a key
// file. With neither set the SDK falls back to application default
// credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(strings.TrimSpace(cfg.ApplicationCredentials))}
	}
	return nil
}
