package neo4j

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValueSemantics(t *testing.T) {
	base := Default()

	alice := base.WithUser("alice").WithPassword("alicepass")
	bob := base.WithUser("bob").WithPassword("bobpass12")

	aliceImg, err := alice.Build()
	require.NoError(t, err)
	bobImg, err := bob.Build()
	require.NoError(t, err)
	baseImg, err := base.Build()
	require.NoError(t, err)

	assert.Equal(t, "alice/alicepass", aliceImg.Env()["NEO4J_AUTH"])
	assert.Equal(t, "bob/bobpass12", bobImg.Env()["NEO4J_AUTH"])
	assert.Equal(t, "neo4j/neo", baseImg.Env()["NEO4J_AUTH"], "mutating derived configs must not touch the base")
}

func TestConfig_PluginSliceNotShared(t *testing.T) {
	base := Default().WithPlugins(Apoc)

	first := base.WithPlugins(Bloom)
	second := base.WithPlugins(Streams)

	firstImg, err := first.Build()
	require.NoError(t, err)
	secondImg, err := second.Build()
	require.NoError(t, err)

	assert.Equal(t, `["apoc","bloom"]`, firstImg.Env()["NEO4JLABS_PLUGINS"])
	assert.Equal(t, `["apoc","streams"]`, secondImg.Env()["NEO4JLABS_PLUGINS"])
}

func TestWithVersion_FailureKeepsPreviousState(t *testing.T) {
	cfg, err := Default().WithVersion("4.2")
	require.NoError(t, err)

	after, err := cfg.WithVersion("4.2.0-enterprise")
	require.Error(t, err)
	assert.IsType(t, &InvalidVersionError{}, err)

	img, err := after.Build()
	require.NoError(t, err)
	assert.Equal(t, "4.2", img.Version())
}

func TestWithoutAuthentication(t *testing.T) {
	img, err := Default().
		WithUser("someone").
		WithPassword("something").
		WithoutAuthentication().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "none", img.Env()["NEO4J_AUTH"])
	_, ok := img.User()
	assert.False(t, ok)
	_, ok = img.Password()
	assert.False(t, ok)
	assert.NotContains(t, img.Env(), "NEO4J_dbms_security_auth__minimum__password__length")
}

func TestWithoutAuthentication_LastCallWins(t *testing.T) {
	img, err := Default().
		WithoutAuthentication().
		WithUser("neo4j").
		WithPassword("Picard123").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "neo4j/Picard123", img.Env()["NEO4J_AUTH"])
	user, ok := img.User()
	require.True(t, ok)
	assert.Equal(t, "neo4j", user)
}

func TestFromEnv_Defaults(t *testing.T) {
	// Guard against ambient CI overrides.
	for _, name := range []string{"NEO4J_VERSION_TAG", "NEO4J_TEST_USER", "NEO4J_TEST_PASS"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	img, err := FromEnv().Build()
	require.NoError(t, err)

	assert.Equal(t, "5", img.Version())
	assert.Equal(t, "neo4j/neo", img.Env()["NEO4J_AUTH"])
}

func TestFromEnv_EnvironmentOverrides(t *testing.T) {
	t.Setenv("NEO4J_VERSION_TAG", "5.13.0")
	t.Setenv("NEO4J_TEST_USER", "ci")
	t.Setenv("NEO4J_TEST_PASS", "ci-password")

	img, err := FromEnv().Build()
	require.NoError(t, err)

	assert.Equal(t, "5.13.0", img.Version())
	assert.Equal(t, "ci/ci-password", img.Env()["NEO4J_AUTH"])
}

func TestFromEnv_InvalidVersionFailsAtBuild(t *testing.T) {
	t.Setenv("NEO4J_VERSION_TAG", "5.13-beta")

	_, err := FromEnv().Build()
	require.Error(t, err)
	assert.IsType(t, &InvalidVersionError{}, err)
}

func TestWithEnterpriseEdition_NoAcceptanceFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Default().WithEnterpriseEdition()
	require.Error(t, err)

	licenseErr, ok := err.(*LicenseNotAcceptedError)
	require.True(t, ok, "expected *LicenseNotAcceptedError, got %T", err)
	assert.Equal(t, "container-license-acceptance.txt", licenseErr.FileName)
	assert.Equal(t, "neo4j:5-enterprise", licenseErr.ExpectedLine)
}

func TestWithEnterpriseEdition_Accepted(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeLicenseFile(t, dir, "neo4j:5-enterprise")

	cfg, err := Default().WithEnterpriseEdition()
	require.NoError(t, err)

	img, err := cfg.Build()
	require.NoError(t, err)

	assert.Equal(t, "5-enterprise", img.Version())
	assert.Equal(t, "yes", img.Env()["NEO4J_ACCEPT_LICENSE_AGREEMENT"])
}

func TestWithEnterpriseEdition_LineIsTrimmed(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeLicenseFile(t, dir, "# accepted licenses\n   neo4j:5-enterprise   \n")

	_, err := Default().WithEnterpriseEdition()
	assert.NoError(t, err)
}

func TestBuild_RechecksLicenseForFinalVersion(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeLicenseFile(t, dir, "neo4j:5-enterprise")

	cfg, err := Default().WithEnterpriseEdition()
	require.NoError(t, err)

	// The version changed after the license was accepted, so the gate must
	// fail again for the new image reference.
	cfg, err = cfg.WithVersion("4.4")
	require.NoError(t, err)

	_, err = cfg.Build()
	require.Error(t, err)

	licenseErr, ok := err.(*LicenseNotAcceptedError)
	require.True(t, ok, "expected *LicenseNotAcceptedError, got %T", err)
	assert.Equal(t, "neo4j:4.4-enterprise", licenseErr.ExpectedLine)
}

func writeLicenseFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, "container-license-acceptance.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
