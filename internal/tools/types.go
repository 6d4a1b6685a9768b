package tools

type Source string

const (
	SourceUnknown Source = ""
	// SourceDownload marks tools unpacked from a downloaded archive.
	SourceDownload Source = "download"
	// SourceBundled marks tools shipped inside another tool's archive.
	SourceBundled Source = "bundled"
	// SourceSelfUpdate marks tools replaced by their own installer, e.g.
	// "npm install -g npm@<version>".
	SourceSelfUpdate Source = "self-update"
)

// Status captures the installed state of a managed tool.
type Status struct {
	Tool        string   `json:"tool"`
	Version     string   `json:"version,omitempty"`
	Source      Source   `json:"source"`
	Path        string   `json:"path,omitempty"`
	URL         string   `json:"url,omitempty"`
	InstalledAt string   `json:"installed_at,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	Installed   bool     `json:"installed"`
	Error       string   `json:"error,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// ToolDefinition contains metadata required to manage a tool.
type ToolDefinition struct {
	Name          string
	Display       string
	Executable    string
	VersionSwitch string
	// Archive tools are downloaded and unpacked by the Installer.
	Archive bool
	// BundledWith names the tool whose archive ships this one.
	BundledWith string
}

// ManifestEntry records an installed tool in the vendor manifest.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Source      Source `json:"source"`
	Path        string `json:"path"`
	URL         string `json:"url,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	InstalledAt string `json:"installed_at,omitempty"`
}

// Manifest wraps persisted entries for quick lookup.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
