// Package modref builds candidate download links for a mod identifier.
//
// The links are templates over Modrinth URL shapes. Nothing here checks that
// the target project exists; downstream renderers display them verbatim, so
// changing a template is a breaking change for them.
//
// The mod id is inserted path-escaped (url.PathEscape). Modrinth slugs use
// only letters, digits, '-', '_' and '.', which pass through unchanged; any
// other byte picked up from a log token, such as the ',' in "B,", appears as a
// %XX escape ("B%2C") rather than being dropped. The id itself is kept as
// found in the log, so RequiredMod and the links always name the same token.
package modref

import (
	"net/url"
	"strings"
)

const (
	pageTemplate     = "https://modrinth.com/mod/{id}"
	versionTemplate  = "https://modrinth.com/mod/{id}/version/latest"
	downloadTemplate = "https://cdn.modrinth.com/data/{id}/versions/latest.jar"
)

// Reference is the triple of candidate links for one mod.
type Reference struct {
	PageURL     string `json:"pageUrl"`
	VersionURL  string `json:"versionUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// For returns the reference for modID. The identifier is path-escaped so a
// stray '/' or '?' in a log token cannot change the URL structure.
func For(modID string) Reference {
	id := url.PathEscape(modID)
	return Reference{
		PageURL:     expand(pageTemplate, id),
		VersionURL:  expand(versionTemplate, id),
		DownloadURL: expand(downloadTemplate, id),
	}
}

func expand(tmpl, id string) string {
	return strings.Replace(tmpl, "{id}", id, 1)
}
