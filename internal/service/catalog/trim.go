package catalog

import "github.com/jgivc/pluginmaster/internal/entity"

// Trimmer projects manifests onto a fixed allow-list of keys.
type Trimmer struct {
	keys []string
}

func NewTrimmer(keys []string) *Trimmer {
	k := make([]string, len(keys))
	copy(k, keys)

	return &Trimmer{keys: k}
}

// Trim returns a new manifest holding only the allow-listed keys present in
// m, in allow-list order. m is not modified.
func (t *Trimmer) Trim(m *entity.Manifest) *entity.Manifest {
	trimmed := entity.NewManifest()
	for _, key := range t.keys {
		if raw, exists := m.Get(key); exists {
			trimmed.SetRaw(key, raw)
		}
	}

	return trimmed
}
