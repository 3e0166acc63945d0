package fsadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/entity"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

const (
	ParseModeManifest ParseMode = iota
	ParseModeArchive
	ParseModeNone

	ArchiveFileName   = "latest.zip"
	ManifestExtension = ".json"
)

type ParseMode int

func (m ParseMode) String() string {
	return [...]string{"Manifest", "Archive", "None"}[m]
}

type fsAdapter struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewFSAdapterWithFS(fs afero.Fs, log *slog.Logger) *fsAdapter {
	return &fsAdapter{
		fs:  fs,
		log: log.With(slog.String("item", "FSAdapter")),
	}
}

// ManifestFileName returns the manifest file name for a plugin.
func ManifestFileName(pluginName string) string {
	return pluginName + ManifestExtension
}

/*
ToManifest reads the manifest of one plugin folder.
1. If the folder contains <folder>.json, then parse it.
2. If the folder contains latest.zip, then parse <folder>.json inside the archive.
3. Otherwise the folder has no manifest and common.ErrNoManifest is returned.
*/
func (a *fsAdapter) ToManifest(folderPath string) (*entity.Manifest, error) {
	files, err := a.readFiles(folderPath)
	if err != nil {
		return nil, fmt.Errorf("cannot get folder files: %w", err)
	}

	if len(files) < 1 {
		return nil, common.ErrNoManifest
	}

	pluginName := filepath.Base(folderPath)
	mode := getParseMode(files, pluginName)
	log := a.log.With(slog.String("path", folderPath), slog.String("mode", mode.String()))

	var manifest *entity.Manifest

	switch mode {
	case ParseModeManifest:
		manifest, err = a.parseManifest(filepath.Join(folderPath, ManifestFileName(pluginName)))
	case ParseModeArchive:
		manifest, err = a.parseArchive(filepath.Join(folderPath, ArchiveFileName), ManifestFileName(pluginName))
	default:
		log.Debug("Skip folder")

		return nil, common.ErrNoManifest
	}

	if err != nil {
		return nil, fmt.Errorf("cannot parse manifest of %s: %w", folderPath, err)
	}

	raw, _ := manifest.MarshalJSON()
	log.Debug("Found manifest", slog.String("manifest", string(raw)))

	return manifest, nil
}

func (a *fsAdapter) parseManifest(fileName string) (*entity.Manifest, error) {
	content, err := afero.ReadFile(a.fs, fileName)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest file: %w", err)
	}

	return decode(content)
}

func (a *fsAdapter) parseArchive(archiveName, entryName string) (*entity.Manifest, error) {
	file, err := a.fs.Open(archiveName)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat archive: %w", err)
	}

	zr, err := zip.NewReader(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("cannot read archive %s: %w", archiveName, err)
	}

	for _, zf := range zr.File {
		if zf.Name != entryName {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open archive entry %s: %w", entryName, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("cannot read archive entry %s: %w", entryName, err)
		}

		return decode(content)
	}

	return nil, fmt.Errorf("%w: %s in %s", common.ErrManifestEntryNotFound, entryName, archiveName)
}

// readFiles returns the names of regular files directly inside folderPath.
func (a *fsAdapter) readFiles(folderPath string) (map[string]struct{}, error) {
	entries, err := afero.ReadDir(a.fs, folderPath)
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{})
	for _, entry := range entries {
		if !entry.IsDir() {
			files[entry.Name()] = struct{}{}
		}
	}

	return files, nil
}

func getParseMode(files map[string]struct{}, pluginName string) ParseMode {
	if _, exists := files[ManifestFileName(pluginName)]; exists {
		return ParseModeManifest
	}

	if _, exists := files[ArchiveFileName]; exists {
		return ParseModeArchive
	}

	return ParseModeNone
}

func decode(content []byte) (*entity.Manifest, error) {
	manifest := entity.NewManifest()
	if err := json.Unmarshal(content, manifest); err != nil {
		return nil, fmt.Errorf("cannot unmarshal manifest: %w", err)
	}

	return manifest, nil
}
