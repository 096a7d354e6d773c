package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daddykev/ddex-suite/config"
	"github.com/daddykev/ddex-suite/internal/preflight"
	"github.com/daddykev/ddex-suite/model"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"audio_album", "audio_single", "compilation", "video_single"}, r.Names())
	assert.Same(t, r, Default())

	p, ok := Lookup("audio_single")
	require.True(t, ok)
	assert.Equal(t, SourcePublicDoc, p.Source)
	assert.Equal(t, "4.3", p.ERN)
	assert.False(t, p.Locked)

	rules := p.Rules()
	assert.Equal(t, "audio_single", rules.Profile)
	assert.Equal(t, []string{"Single"}, rules.ReleaseTypes)
	assert.Equal(t, 3, rules.MaxResources)
	assert.Equal(t, "SoundRecording", rules.ResourceKind)
	assert.Contains(t, rules.RequiredFields, preflight.FieldISRC)

	c, ok := Lookup("compilation")
	require.True(t, ok)
	assert.True(t, c.Locked)
	cfg := c.Apply(config.Default())
	assert.Equal(t, config.PreflightStrict, cfg.Preflight)
	assert.True(t, cfg.EmitBanner)
	assert.Equal(t, config.HashSHA256, cfg.Hash)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestRegistryIsImmutable(t *testing.T) {
	r := Default()
	names := r.Names()
	names[0] = "changed"
	assert.Equal(t, "audio_album", r.Names()[0])

	more, err := r.With(Preset{Name: "label_x"})
	require.NoError(t, err)
	assert.Len(t, more.Names(), 5)
	assert.Len(t, r.Names(), 4)

	_, err = r.With(Preset{Name: "audio_album"})
	assert.ErrorContains(t, err, "duplicate")
}

func TestOverridesKeepUnsetFields(t *testing.T) {
	base := config.Default().WithHash(config.HashBLAKE2b256)
	got := Overrides{}.Apply(base)
	assert.Equal(t, base.Hash, got.Hash)
	assert.Equal(t, base.Preflight, got.Preflight)

	level := config.PreflightNone
	got = Overrides{Preflight: &level}.Apply(base)
	assert.Equal(t, config.PreflightNone, got.Preflight)
	assert.Equal(t, config.HashBLAKE2b256, got.Hash)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "label.yml")
	require.NoError(t, os.WriteFile(yml, []byte(`
name: label_yaml
ern: "4.2"
config:
  preflight: strict
  id_strategy: sequential
required_fields: [Genre]
constraints:
  territories: [US, CA]
`), 0o600))
	p, err := LoadFile(yml)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, p.Source)
	require.NotNil(t, p.Config.IDs)
	assert.Equal(t, config.IDSequential, *p.Config.IDs)
	assert.Equal(t, []string{"US", "CA"}, p.Rules().Territories)

	tml := filepath.Join(dir, "label.toml")
	require.NoError(t, os.WriteFile(tml, []byte(`
name = "label_toml"
source = "community"
locked = true
required_fields = ["ICPN"]

[config]
hash = "sha3-256"
verify_iterations = 25

[defaults]
territories = ["GB"]
`), 0o600))
	p, err = LoadFile(tml)
	require.NoError(t, err)
	assert.Equal(t, SourceCommunity, p.Source)
	assert.True(t, p.Locked)
	cfg := p.Apply(config.Default())
	assert.Equal(t, config.HashSHA3_256, cfg.Hash)
	assert.Equal(t, 25, cfg.VerifyIterations)
	assert.Equal(t, []string{"GB"}, p.Defaults.Territories)
}

func TestLoadFileRejects(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}
	for name, body := range map[string]string{
		"unknown_key.yaml":   "name: x\ncolour: blue\n",
		"bad_enum.yaml":      "name: x\nconfig:\n  hash: md5\n",
		"bad_field.yaml":     "name: x\nrequired_fields: [Mood]\n",
		"bad_version.yaml":   "name: x\nern: \"9.9\"\n",
		"bad_bounds.toml":    "name = \"x\"\n[constraints]\nmin_resources = 4\nmax_resources = 2\n",
		"no_name.toml":       "description = \"nameless\"\n",
		"preset.json":        "{}",
		"bad_iterations.yml": "name: x\nconfig:\n  verify_iterations: -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(write(name, body))
			assert.Error(t, err)
		})
	}
	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFill(t *testing.T) {
	p, ok := Lookup("audio_album")
	require.True(t, ok)
	req := model.BuildRequest{
		Releases: []model.ReleaseRequest{{Reference: "R1"}, {Reference: "R2", Territories: []string{"US"}}},
		Deals:    []model.DealRequest{{ReleaseReferences: []string{"R1"}}},
	}
	got := p.Fill(req)
	assert.Equal(t, "4.3", got.Version)
	assert.Equal(t, "CommonReleaseTypes/14/AudioAlbumMusicOnly", got.Profile)
	assert.Equal(t, "LiveMessage", got.Header.ControlType)
	assert.Equal(t, []string{"Worldwide"}, got.Releases[0].Territories)
	assert.Equal(t, []string{"US"}, got.Releases[1].Territories)
	assert.Equal(t, "PayAsYouGoModel", got.Deals[0].Terms.CommercialModel)
	assert.Equal(t, []string{"PermanentDownload", "OnDemandStream"}, got.Deals[0].Terms.UseTypes)

	// the input is not modified
	assert.Empty(t, req.Releases[0].Territories)
	assert.Empty(t, req.Deals[0].Terms.CommercialModel)
}
