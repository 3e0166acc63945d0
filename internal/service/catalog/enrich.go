package catalog

import (
	"fmt"
	"strings"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/config"
	"github.com/jgivc/pluginmaster/internal/entity"
)

const (
	placeholderBranch     = "{branch}"
	placeholderPluginName = "{plugin_name}"
)

// Enricher adds the computed fields of a catalog entry.
type Enricher struct {
	branch      string
	downloadURL string
	defaults    []config.Default
	duplicates  []config.Duplicate
}

func NewEnricher(cfg config.CatalogConfig, branch string) *Enricher {
	defaults := make([]config.Default, len(cfg.Defaults))
	copy(defaults, cfg.Defaults)

	duplicates := make([]config.Duplicate, 0, len(cfg.Duplicates))
	for _, d := range cfg.Duplicates {
		keys := make([]string, len(d.Keys))
		copy(keys, d.Keys)
		duplicates = append(duplicates, config.Duplicate{Source: d.Source, Keys: keys})
	}

	return &Enricher{
		branch:      branch,
		downloadURL: cfg.DownloadURL,
		defaults:    defaults,
		duplicates:  duplicates,
	}
}

func (e *Enricher) DownloadURL(pluginName string) string {
	return strings.NewReplacer(
		placeholderBranch, e.branch,
		placeholderPluginName, pluginName,
	).Replace(e.downloadURL)
}

// Enrich fills in m in place:
//  1. DownloadLinkInstall, when missing or falsy, from the URL template;
//  2. defaults for missing keys;
//  3. missing aliases from their source key;
//  4. DownloadCount = 0.
func (e *Enricher) Enrich(m *entity.Manifest) error {
	if !m.Truthy(entity.KeyDownloadLinkInstall) {
		name, ok := m.InternalName()
		if !ok {
			return common.ErrMissingInternalName
		}

		if err := m.Set(entity.KeyDownloadLinkInstall, e.DownloadURL(name)); err != nil {
			return err
		}
	}

	for _, d := range e.defaults {
		if m.Has(d.Key) {
			continue
		}

		if err := m.Set(d.Key, d.Value); err != nil {
			return err
		}
	}

	for _, d := range e.duplicates {
		for _, key := range d.Keys {
			if m.Has(key) {
				continue
			}

			raw, exists := m.Get(d.Source)
			if !exists {
				return fmt.Errorf("cannot duplicate %s into %s: source is missing", d.Source, key)
			}

			m.SetRaw(key, raw)
		}
	}

	return m.Set(entity.KeyDownloadCount, 0)
}
