package email

import (
	"context"
	"encoding/base64"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/briefdesk/brief-service/internal/config"
)

const communicationScope = "https://communication.azure.com/.default"

// NewTransport picks the authentication mode from configuration: a
// connection string, an endpoint with access key, or an endpoint with Entra ID
// client credentials. It returns a *ConfigError naming what is missing.
func NewTransport(ctx context.Context, cfg config.EmailConfig, azure config.AzureIdentityConfig, logger *zap.Logger) (Transport, error) {
	endpoint, accessKey := cfg.Endpoint, cfg.AccessKey
	if cfg.ConnectionString != "" {
		var err error
		if endpoint, accessKey, err = ParseConnectionString(cfg.ConnectionString); err != nil {
			return nil, err
		}
	}

	switch {
	case endpoint == "" && accessKey == "":
		return nil, &ConfigError{Missing: []string{
			"AZURE_COMMUNICATION_CONNECTION_STRING",
			"AZURE_COMMUNICATION_KEY with AZURE_COMMUNICATION_EMAIL_ENDPOINT",
		}}
	case endpoint == "":
		return nil, &ConfigError{Missing: []string{"AZURE_COMMUNICATION_EMAIL_ENDPOINT"}}
	}

	var httpClient *http.Client
	switch {
	case accessKey != "":
		key, err := base64.StdEncoding.DecodeString(accessKey)
		if err != nil {
			return nil, &ConfigError{Detail: "AZURE_COMMUNICATION_KEY is not valid base64"}
		}
		httpClient = &http.Client{Transport: newHMACTransport(key, nil)}
		logger.Info("email transport uses access key", zap.String("endpoint", endpoint))
	case azure.Configured():
		creds := clientcredentials.Config{
			ClientID:     azure.ClientID,
			ClientSecret: azure.ClientSecret,
			TokenURL:     azure.TokenURL(),
			Scopes:       []string{communicationScope},
		}
		httpClient = creds.Client(ctx)
		logger.Info("email transport uses entra id client credentials", zap.String("endpoint", endpoint))
	default:
		return nil, &ConfigError{Missing: []string{
			"AZURE_COMMUNICATION_KEY",
			"AZURE_TENANT_ID/AZURE_CLIENT_ID/AZURE_CLIENT_SECRET",
		}}
	}

	return NewACSClient(endpoint, cfg.APIVersion, httpClient, cfg.PollInterval(), logger), nil
}
