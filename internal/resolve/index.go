package resolve

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	semver "github.com/Masterminds/semver/v3"
)

// IndexBackend resolves against a JSON release index on disk:
//
//	{"node": [{"version": "20.11.1", "url": "https://.../node-v{version}-{platform}.tar.gz"}]}
//
// The {version} and {platform} placeholders in url are expanded.
type IndexBackend struct {
	Path     string
	Platform string
}

// NewIndexBackend returns a backend reading path for the current platform.
func NewIndexBackend(path string) *IndexBackend {
	return &IndexBackend{Path: path, Platform: Platform()}
}

func (b *IndexBackend) Resolve(_ context.Context, tool, constraint string) (Version, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		return Version{}, errorf(ReasonBackendData, "%s release index: %v", FetchErrorPrefix, err)
	}
	var index map[string][]Version
	if err := json.Unmarshal(data, &index); err != nil {
		return Version{}, errorf(ReasonBackendData, "%s release index: %v", FetchErrorPrefix, err)
	}

	c, err := semver.NewConstraint(normalizeConstraint(constraint))
	if err != nil {
		return Version{}, errorf(ReasonInvalidConstraint, "%s %q: %v", ParseErrorPrefix, constraint, err)
	}

	var (
		best    *semver.Version
		bestRel Version
	)
	for _, rel := range index[tool] {
		v, err := semver.NewVersion(rel.Number)
		if err != nil {
			continue
		}
		if !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRel = rel
		}
	}
	if best == nil {
		return Version{}, errorf(ReasonNoMatch, NoResultMessage)
	}

	bestRel.Number = best.String()
	bestRel.URL = expandURL(bestRel.URL, bestRel.Number, b.Platform)
	return bestRel, nil
}

// normalizeConstraint maps npm spellings Masterminds does not accept.
func normalizeConstraint(raw string) string {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "latest", "*", "x":
		return "*"
	}
	return raw
}

func expandURL(raw, version, platform string) string {
	return strings.NewReplacer("{version}", version, "{platform}", platform).Replace(raw)
}
