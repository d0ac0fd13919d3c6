package tls

import (
	"crypto/tls"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfSigned(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cert, err := SelfSigned([]string{"viz.internal", "10.0.0.7"}, 48*time.Hour, now)
	require.NoError(t, err)

	leaf := cert.Leaf
	assert.Equal(t, "viz.internal", leaf.Subject.CommonName)
	assert.Equal(t, []string{"viz.internal"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.True(t, leaf.IPAddresses[0].Equal(net.ParseIP("10.0.0.7")))
	assert.True(t, now.Add(48*time.Hour).Equal(leaf.NotAfter))
	assert.NoError(t, leaf.VerifyHostname("viz.internal"))
}

func TestServerConfigFromFiles(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "certs", "server.crt")
	keyFile := filepath.Join(dir, "certs", "server.key")

	cert, err := SelfSigned(nil, 0, time.Now())
	require.NoError(t, err)
	require.NoError(t, WritePEM(cert, certFile, keyFile))

	info, err := os.Stat(keyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tc, leaf, err := ServerConfig(Config{CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), tc.MinVersion)
	assert.Equal(t, cert.Leaf.SerialNumber, leaf.SerialNumber)
	assert.WithinDuration(t, time.Now().Add(DefaultValidFor), leaf.NotAfter, time.Minute)
}

func TestServerConfigErrors(t *testing.T) {
	_, _, err := ServerConfig(Config{})
	assert.True(t, errors.Is(err, ErrNoCertificate))

	_, _, err = ServerConfig(Config{CertFile: "missing.crt", KeyFile: "missing.key"})
	assert.ErrorContains(t, err, "loading certificate")

	tc, leaf, err := ServerConfig(Config{SelfSigned: true, Hosts: []string{"localhost"}})
	require.NoError(t, err)
	assert.Len(t, tc.Certificates, 1)
	assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
}
