package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DBDriver = "mysql"
	require.ErrorIs(t, cfg.Validate(), ErrUnknownDriver)

	cfg = Default()
	cfg.JWTSecret = ""
	require.ErrorIs(t, cfg.Validate(), ErrMissingSecret)

	cfg = Default()
	cfg.DBDriver = "postgres"
	require.NoError(t, cfg.Validate())
}
