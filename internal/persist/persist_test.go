package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/kb-refresh/internal/types"
)

func TestWriteArtifacts(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "work", "akira")
	uploadDir := filepath.Join(root, "KB Uploads", "akira")

	a, err := WriteArtifacts(workDir, "akira", "# Akira\n", "<h1>Akira</h1>\n")
	require.NoError(t, err)
	assert.NoDirExists(t, uploadDir)
	require.NoError(t, a.Mirror(uploadDir))
	assert.Equal(t, uploadDir, a.UploadDir)

	assert.Equal(t, filepath.Join(workDir, "knowledge_base_akira_full_latest.md"), a.MarkdownPath)
	assert.Equal(t, filepath.Join(workDir, "knowledge_base_akira_full_latest.html"), a.HTMLPath)

	for _, dir := range []string{workDir, uploadDir} {
		md, err := os.ReadFile(filepath.Join(dir, MarkdownName("akira")))
		require.NoError(t, err)
		html, err := os.ReadFile(filepath.Join(dir, HTMLName("akira")))
		require.NoError(t, err)
		assert.Equal(t, "# Akira\n", string(md))
		assert.Equal(t, "<h1>Akira</h1>\n", string(html))
	}

	md, _ := os.ReadFile(a.MarkdownPath)
	html, _ := os.ReadFile(a.HTMLPath)
	sum := sha256.Sum256([]byte(string(html) + "\n" + string(md)))
	assert.Equal(t, hex.EncodeToString(sum[:]), a.Hash)
	assert.Len(t, a.Hash, 64)
}

func TestMirror_EmptyUploadDir(t *testing.T) {
	a, err := WriteArtifacts(t.TempDir(), "x", "md", "html")
	require.NoError(t, err)
	require.NoError(t, a.Mirror(""))
	assert.Empty(t, a.UploadDir)
}

func TestWriteArtifacts_NoTempFilesLeft(t *testing.T) {
	workDir := t.TempDir()
	_, err := WriteArtifacts(workDir, "x", "md", "html")
	require.NoError(t, err)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{MarkdownName("x"), HTMLName("x")}, names)
}

func TestWriteArtifacts_OverwritesPrevious(t *testing.T) {
	workDir := t.TempDir()
	first, err := WriteArtifacts(workDir, "x", "one", "one")
	require.NoError(t, err)
	second, err := WriteArtifacts(workDir, "x", "two", "two")
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
	data, _ := os.ReadFile(second.MarkdownPath)
	assert.Equal(t, "two", string(data))
}

func TestWriteArtifacts_UnwritableDir(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteArtifacts(filepath.Join(blocker, "sub"), "x", "md", "html")
	require.Error(t, err)
	var fsErr *Error
	require.True(t, errors.As(err, &fsErr))
	assert.Equal(t, "FilesystemError", fsErr.Kind())
	assert.Equal(t, types.KindFilesystem, types.ErrorKind(err))
}

func TestHash_DependsOnBothDocuments(t *testing.T) {
	assert.Equal(t, Hash("a", "b"), Hash("a", "b"))
	assert.NotEqual(t, Hash("a", "b"), Hash("a", "c"))
	assert.NotEqual(t, Hash("a", "b"), Hash("b", "a"))
}

func TestJSONRoundTripAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "orchestrator.json")

	var missing map[string]int
	err := ReadJSON(path, &missing)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, WriteJSON(path, map[string]int{"b": 2, "a": 1}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": 2\n}\n", string(data))

	var got map[string]int
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)
}

func TestReadJSON_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	var v map[string]any
	err := ReadJSON(path, &v)
	var fsErr *Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "invalid JSON", fsErr.Message)
}

func TestWriteProfileSnapshot(t *testing.T) {
	workDir := t.TempDir()
	profile := &types.RestaurantProfile{
		Slug:    "hokkaido_lithia",
		Name:    "Hokkaido",
		City:    "Valrico",
		State:   "FL",
		Phone:   "(813) 000-0000",
		Website: "https://hokkaido.example",
		Hours:   "Mon-Sun 11-9",
	}
	facts := &types.Facts{
		Phone:       "(813) 654-3000",
		Hours:       types.HoursTable{"Monday": {"11:00 AM - 9:30 PM"}},
		Sources:     []string{"https://hokkaido.example"},
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	path, err := WriteProfileSnapshot(workDir, profile, facts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, ProfileFileName), path)

	var snap ProfileSnapshot
	require.NoError(t, ReadJSON(path, &snap))
	assert.Equal(t, "Hokkaido", snap.Name)
	assert.Equal(t, "(813) 000-0000", snap.Phone)
	assert.Equal(t, "Mon-Sun 11-9", snap.Hours)
	require.NotNil(t, snap.Extracted)
	assert.Equal(t, "(813) 654-3000", snap.Extracted.Phone)
	assert.Equal(t, "generic", snap.Extracted.Strategy)
	assert.Equal(t, "2024-05-01T12:00:00Z", snap.Extracted.GeneratedAt)
	assert.Equal(t, []string{"11:00 AM - 9:30 PM"}, snap.Extracted.Hours["Monday"])

	var reloaded types.RestaurantProfile
	require.NoError(t, ReadJSON(path, &reloaded))
	assert.Equal(t, *profile, reloaded)
}
