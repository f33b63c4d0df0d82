package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/codeinventory/internal/transport"
	"github.com/agentstation/codeinventory/pkg/errors"
)

func TestLoadCredentials(t *testing.T) {
	creds, err := LoadCredentials(map[string]string{
		"GH_APP_ID":              "123",
		"GH_APP_INSTALLATION_ID": "456",
		"GH_APP_PRIVATE_KEY":     "  " + rsaKeyHeader + "\nabc\n",
		"GH_ORG":                 "cdcgov",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(123), creds.AppID)
	assert.Equal(t, int64(456), creds.InstallationID)
	assert.True(t, creds.UsingApp())
	assert.False(t, creds.UsingToken())
	assert.Equal(t, DefaultAPIURL, creds.APIURL)
	assert.Equal(t, rsaKeyHeader+"\nabc", creds.PrivateKey)
}

func TestLoadCredentialsBadNumber(t *testing.T) {
	_, err := LoadCredentials(map[string]string{"GH_APP_ID": "abc"})
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCredentialsVerify(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr []string
	}{
		{
			name:  "valid token",
			creds: Credentials{Token: "ghp_abcdefghijklmnopqrst", Organization: "cdcgov"},
		},
		{
			name:  "valid fine-grained token",
			creds: Credentials{Token: "github_pat_abc", Organization: "cdcgov"},
		},
		{
			name:  "valid app",
			creds: Credentials{AppID: 1, InstallationID: 2, PrivateKey: rsaKeyHeader + "\n...", Organization: "cdcgov"},
		},
		{
			name:    "bad token prefix",
			creds:   Credentials{Token: "token123", Organization: "cdcgov"},
			wantErr: []string{"should start with ghp_ or github_pat_"},
		},
		{
			name:    "both methods",
			creds:   Credentials{AppID: 1, InstallationID: 2, PrivateKey: rsaKeyHeader, Token: "ghp_x", Organization: "cdcgov"},
			wantErr: []string{"use only one"},
		},
		{
			name:    "neither method",
			creds:   Credentials{Organization: "cdcgov"},
			wantErr: []string{"no GitHub authentication configured"},
		},
		{
			name:    "incomplete app",
			creds:   Credentials{AppID: 1, PrivateKey: "not a key", Organization: "cdcgov"},
			wantErr: []string{"installation ID is missing", "RSA private key"},
		},
		{
			name:    "missing organization",
			creds:   Credentials{Token: "ghp_x"},
			wantErr: []string{"organization is not specified"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Verify()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestCredentialsAuthenticator(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		creds := &Credentials{Token: "ghp_x"}
		auth, err := creds.Authenticator()
		require.NoError(t, err)
		assert.IsType(t, &transport.BearerAuth{}, auth)
	})

	t.Run("app", func(t *testing.T) {
		creds := &Credentials{AppID: 1, InstallationID: 2, PrivateKey: testKeyPEM(t), APIURL: DefaultAPIURL}
		auth, err := creds.Authenticator()
		require.NoError(t, err)
		assert.IsType(t, &transport.TokenSourceAuth{}, auth)
	})

	t.Run("bad key", func(t *testing.T) {
		creds := &Credentials{AppID: 1, InstallationID: 2, PrivateKey: rsaKeyHeader + "\ngarbage"}
		_, err := creds.Authenticator()
		assert.ErrorIs(t, err, errors.ErrCredentials)
	})

	t.Run("none", func(t *testing.T) {
		_, err := (&Credentials{}).Authenticator()
		assert.ErrorIs(t, err, errors.ErrCredentials)
	})
}
