package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions only",
			input: map[string]any{
				"extensions": []any{"httpfs", "icu"},
			},
			want: &Params{Extensions: []string{"httpfs", "icu"}},
		},
		{
			name: "settings are stringified",
			input: map[string]any{
				"settings": map[string]any{
					"memory_limit": "4GB",
					"threads":      4,
				},
			},
			want: &Params{Settings: map[string]string{"memory_limit": "4GB", "threads": "4"}},
		},
		{
			name: "secret with scope list",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":     "s3",
						"provider": "credential_chain",
						"scope":    []any{"s3://a", "s3://b"},
					},
				},
			},
			want: &Params{Secrets: []SecretConfig{
				{Type: "s3", Provider: "credential_chain", Scope: []any{"s3://a", "s3://b"}},
			}},
		},
		{
			name:    "unknown key is rejected",
			input:   map[string]any{"extension": []any{"httpfs"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_SetupStatements(t *testing.T) {
	useSSL := false
	p := &Params{
		Extensions: []string{"httpfs"},
		Settings:   map[string]string{"threads": "2", "TimeZone": "UTC"},
		Secrets: []SecretConfig{{
			Type:     "s3",
			Provider: "config",
			Region:   "eu-west-1",
			KeyID:    "k",
			Secret:   "it's",
			Scope:    "s3://bucket",
			UseSSL:   &useSSL,
		}},
	}

	assert.Equal(t, []string{
		"INSTALL httpfs",
		"LOAD httpfs",
		"SET TimeZone = 'UTC'",
		"SET threads = '2'",
		"CREATE OR REPLACE SECRET dashquery_secret_0 (TYPE s3, PROVIDER config, REGION 'eu-west-1', KEY_ID 'k', SECRET 'it''s', USE_SSL false, SCOPE 's3://bucket')",
	}, p.setupStatements())

	assert.Empty(t, (&Params{}).setupStatements())
}
