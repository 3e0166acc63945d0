package common

import "fmt"

var (
	ErrBranchNotSet          = fmt.Errorf("branch is not set: GITHUB_REF is empty")
	ErrNoManifest            = fmt.Errorf("no manifest found")
	ErrManifestEntryNotFound = fmt.Errorf("manifest entry not found in archive")
	ErrMissingInternalName   = fmt.Errorf("manifest has no InternalName")
	ErrNotAnObject           = fmt.Errorf("manifest is not a JSON object")
	ErrCatalogNotPublished   = fmt.Errorf("catalog is not published")
)
