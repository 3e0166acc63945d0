package fsadapter

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func makeZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.String()
}

func TestToManifest(t *testing.T) {
	const pluginDir = "/plugins/Foo"

	testCases := []struct {
		name          string
		files         map[string]string
		expectedError error
		expectError   bool
		expected      string
		logEnabled    bool
	}{
		{
			name:          "Empty folder",
			expectedError: common.ErrNoManifest,
		},
		{
			name: "Unrelated files only",
			files: map[string]string{
				"icon.png":   "png",
				"Other.json": `{"InternalName": "Other"}`,
			},
			expectedError: common.ErrNoManifest,
		},
		{
			name: "Loose manifest",
			files: map[string]string{
				"Foo.json": `{"InternalName": "Foo", "Author": "A", "Tags": ["x", "y"]}`,
			},
			expected: `{"InternalName":"Foo","Author":"A","Tags":["x", "y"]}`,
		},
		{
			name: "Manifest inside archive",
			files: map[string]string{
				ArchiveFileName: makeZip(t, map[string]string{
					"Foo.dll":  "binary",
					"Foo.json": `{"InternalName":"Foo","Name":"Foo plugin"}`,
				}),
			},
			expected: `{"InternalName":"Foo","Name":"Foo plugin"}`,
		},
		{
			name: "Loose manifest wins over archive",
			files: map[string]string{
				"Foo.json": `{"InternalName":"Foo","Name":"loose"}`,
				ArchiveFileName: makeZip(t, map[string]string{
					"Foo.json": `{"InternalName":"Foo","Name":"zipped"}`,
				}),
			},
			expected: `{"InternalName":"Foo","Name":"loose"}`,
		},
		{
			name: "Archive without manifest entry",
			files: map[string]string{
				ArchiveFileName: makeZip(t, map[string]string{
					"Bar.json": `{"InternalName":"Bar"}`,
				}),
			},
			expectedError: common.ErrManifestEntryNotFound,
		},
		{
			name: "Broken archive",
			files: map[string]string{
				ArchiveFileName: "not a zip",
			},
			expectError: true,
		},
		{
			name: "Malformed manifest",
			files: map[string]string{
				"Foo.json": `{"InternalName": "Foo",`,
			},
			expectError: true,
		},
		{
			name: "Manifest is not an object",
			files: map[string]string{
				"Foo.json": `["Foo"]`,
			},
			expectedError: common.ErrNotAnObject,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, fs.MkdirAll(pluginDir, os.ModeDir))

			for path, content := range tc.files {
				err := afero.WriteFile(fs, filepath.Join(pluginDir, path), []byte(content), 0644)
				require.NoError(t, err)
			}

			logW := io.Discard
			if tc.logEnabled {
				logW = os.Stderr
			}
			log := slog.New(slog.NewTextHandler(logW, &slog.HandlerOptions{Level: slog.LevelDebug}))

			adapter := NewFSAdapterWithFS(fs, log)

			manifest, err := adapter.ToManifest(pluginDir)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			if tc.expectError {
				require.Error(t, err)
				require.NotErrorIs(t, err, common.ErrNoManifest)
				return
			}

			require.NoError(t, err)

			raw, err := manifest.MarshalJSON()
			require.NoError(t, err)
			require.JSONEq(t, tc.expected, string(raw))
		})
	}
}

func TestParseModeString(t *testing.T) {
	require.Equal(t, "Manifest", ParseModeManifest.String())
	require.Equal(t, "Archive", ParseModeArchive.String())
	require.Equal(t, "None", ParseModeNone.String())
}
