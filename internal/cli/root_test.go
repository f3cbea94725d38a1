package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/footprint/internal/auth"
	"example.com/footprint/internal/config"
	"example.com/footprint/internal/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &options{
		now: time.Now,
		loadConfig: func() (config.Config, error) {
			return config.Config{Auth: config.AuthConfig{JWTSecret: "test-secret", JWTIssuer: "footprint"}}, nil
		},
	}
	cmd := newRootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFlightCommand(t *testing.T) {
	out, err := execute(t, "flight", "jfk", "LHR")
	require.NoError(t, err)
	assert.Contains(t, out, "JFK")
	assert.Contains(t, out, "flight_international_long")

	out, err = execute(t, "--json", "flight", "JFK", "LHR")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.InDelta(t, 5541, payload["distance_km"], 25)
	assert.Equal(t, "long", payload["haul_type"])
}

func TestFlightCommandUnknownAirport(t *testing.T) {
	_, err := execute(t, "flight", "ZZZ", "LHR")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestFlightCommandRequiresTwoArgs(t *testing.T) {
	_, err := execute(t, "flight", "JFK")
	require.Error(t, err)
}

func TestAirportsCommand(t *testing.T) {
	out, err := execute(t, "airports", "london", "--limit", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.LessOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "IATA")
	assert.Contains(t, out, "LHR")

	_, err = execute(t, "airports", "x")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestFactorsCommandFiltersCategory(t *testing.T) {
	out, err := execute(t, "factors", "--category", "food")
	require.NoError(t, err)
	assert.Contains(t, out, "beef")
	assert.NotContains(t, out, "car_petrol")
}

func TestRegionsCommand(t *testing.T) {
	out, err := execute(t, "regions")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	out, err := execute(t, "token", "--sub", "user-1", "--email", "a@example.com", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.Parse(strings.TrimSpace(out), auth.Config{Secret: "test-secret", Issuer: "footprint"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = auth.Parse(strings.TrimSpace(out), auth.Config{Secret: "other", Issuer: "footprint"})
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
