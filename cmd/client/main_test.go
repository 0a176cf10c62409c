package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerhub/api/internal/config"
	"volunteerhub/api/internal/handlers"
	"volunteerhub/api/internal/server"
)

func startAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Storage:     config.StorageConfig{Driver: config.StorageDriverMemory},
		Security: config.SecurityConfig{
			JWTSecret:   "cli-secret",
			JWTTTL:      time.Hour,
			HashTime:    1,
			HashMemory:  8 * 1024,
			HashThreads: 1,
			HashWorkers: 1,
		},
	}
	hs, err := handlers.NewHandlerSet(zerolog.Nop(), nil, nil, cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(server.NewHTTPServer(cfg, zerolog.Nop(), hs).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func stubPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func() (string, error) {
		pw := passwords[0]
		passwords = passwords[1:]
		return pw, nil
	}
}

func TestRegisterThenLogin(t *testing.T) {
	url := startAPI(t)
	ctx := context.Background()

	stubPasswords(t, "secret123", "secret123")
	var out bytes.Buffer
	code := run(ctx, []string{"--api", url, "register", "--name", "Ada", "--email", "ada@example.com"}, strings.NewReader(""), &out, zerolog.Nop())
	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "Account created for ada@example.com")

	stubPasswords(t, "secret123")
	out.Reset()
	code = run(ctx, []string{"--api", url, "login"}, strings.NewReader("ada@example.com\n"), &out, zerolog.Nop())
	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "Signed in as Ada <ada@example.com>")
	assert.Contains(t, out.String(), "-> /(tabs)/home")
}

func TestLoginFailureShowsFixedMessage(t *testing.T) {
	url := startAPI(t)

	stubPasswords(t, "wrong")
	var out bytes.Buffer
	code := run(context.Background(), []string{"--api", url, "login", "--email", "nobody@example.com"}, strings.NewReader(""), &out, zerolog.Nop())
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Error: login failed, please try again")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	stubPasswords(t, "one", "two")
	var out bytes.Buffer
	code := run(context.Background(), []string{"--api", "http://127.0.0.1:1", "register", "--name", "A", "--email", "a@example.com"}, strings.NewReader(""), &out, zerolog.Nop())
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "passwords do not match")
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, strings.NewReader(""), &out, zerolog.Nop()))
	assert.Contains(t, out.String(), "usage:")

	out.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"frobnicate"}, strings.NewReader(""), &out, zerolog.Nop()))
	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
}
