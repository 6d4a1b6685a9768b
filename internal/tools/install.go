package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archives"

	"buildpack/internal/config"
	"buildpack/internal/httpx"
	"buildpack/internal/paths"
	"buildpack/internal/resolve"
)

// Installer downloads resolved artifacts and commits them into the build's
// vendor directory.
type Installer struct {
	Layout paths.Layout
	Client *httpx.Client
	Logger *log.Logger

	now func() time.Time
}

// NewInstaller returns an installer downloading through a retrying client.
func NewInstaller(l paths.Layout, cfg config.DownloadConfig, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Installer{
		Layout: l,
		Client: httpx.NewClient(cfg.Timeout, cfg.Retries),
		Logger: logger,
		now:    time.Now,
	}
}

// Install downloads v and unpacks it into the tool's install directory. The
// previous install, if any, is only replaced once the new one is fully
// unpacked.
func (i *Installer) Install(ctx context.Context, tool string, v resolve.Version) (Status, error) {
	def, ok := Definition(tool)
	if !ok {
		return Status{}, fmt.Errorf("unknown tool: %s", tool)
	}
	if !def.Archive {
		return Status{Tool: tool}, fmt.Errorf("%s is not installed from an archive", tool)
	}
	if v.URL == "" {
		return Status{Tool: tool}, fmt.Errorf("%s %s: missing download url", tool, v.Number)
	}

	if err := os.MkdirAll(i.Layout.DownloadsDir, 0o755); err != nil {
		return Status{Tool: tool}, fmt.Errorf("prepare downloads dir: %w", err)
	}
	archivePath, err := resolveArchivePath(i.Layout.DownloadsDir, v.URL)
	if err != nil {
		return Status{Tool: tool}, err
	}

	i.Logger.Printf("download %s %s from %s", tool, v.Number, v.URL)
	if err := i.ensureDownload(ctx, archivePath, v.URL, v.Checksum); err != nil {
		return Status{Tool: tool, Error: err.Error()}, err
	}
	checksum, err := computeChecksum(archivePath)
	if err != nil {
		return Status{Tool: tool, Error: err.Error()}, err
	}

	dest := InstallDir(i.Layout, tool, v.Number)
	if err := unpackInto(ctx, archivePath, dest); err != nil {
		return Status{Tool: tool, Error: err.Error()}, err
	}
	i.Logger.Printf("installed %s %s into %s", tool, v.Number, dest)

	entry := ManifestEntry{
		Tool:        tool,
		Version:     v.Number,
		Source:      SourceDownload,
		Path:        dest,
		URL:         v.URL,
		Checksum:    checksum,
		InstalledAt: i.now().UTC().Format(time.RFC3339),
	}
	if err := Record(i.Layout, entry); err != nil {
		return Status{Tool: tool, Error: err.Error()}, err
	}
	return statusFromEntry(entry), nil
}

func statusFromEntry(entry ManifestEntry) Status {
	return Status{
		Tool:        entry.Tool,
		Version:     entry.Version,
		Source:      entry.Source,
		Path:        entry.Path,
		URL:         entry.URL,
		InstalledAt: entry.InstalledAt,
		Checksum:    entry.Checksum,
		Installed:   true,
	}
}

func (i *Installer) ensureDownload(ctx context.Context, dest, downloadURL, checksum string) error {
	if _, err := os.Stat(dest); err == nil {
		if checksum == "" {
			i.Logger.Printf("reuse download %s", dest)
			return nil
		}
		if match, err := verifyChecksum(dest, checksum); err == nil && match {
			i.Logger.Printf("reuse verified download %s", dest)
			return nil
		}
	}
	return i.downloadArtifact(ctx, dest, downloadURL, checksum)
}

func (i *Installer) downloadArtifact(ctx context.Context, dest, downloadURL, checksum string) error {
	resp, err := i.Client.Get(ctx, downloadURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("download %s: unexpected status %s", downloadURL, resp.Status)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if checksum != "" {
		match, err := verifyChecksum(tmpPath, checksum)
		if err != nil {
			return err
		}
		if !match {
			return fmt.Errorf("checksum mismatch for %s", downloadURL)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func verifyChecksum(path, expected string) (bool, error) {
	sum, err := computeChecksum(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(sum, expected), nil
}

func computeChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func resolveArchivePath(downloadsDir, downloadURL string) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "" || base == "/" {
		return "", fmt.Errorf("infer archive name from url: %s", downloadURL)
	}
	return filepath.Join(downloadsDir, base), nil
}

// unpackInto extracts archivePath into a temporary sibling of dest and renames
// it into place. A single top-level directory in the archive is stripped.
func unpackInto(ctx context.Context, archivePath, dest string) error {
	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("prepare install dir: %w", err)
	}
	tmpDir, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+"-tmp-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := extractArchive(ctx, archivePath, tmpDir); err != nil {
		return err
	}
	root, err := archiveRoot(tmpDir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("replace install dir: %w", err)
	}
	if err := os.Rename(root, dest); err != nil {
		return fmt.Errorf("commit install dir: %w", err)
	}
	return nil
}

// archiveRoot returns the single top-level directory of an extracted archive,
// or dir itself when the archive has several top-level entries.
func archiveRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read extracted archive: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

func extractArchive(ctx context.Context, archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), file)
	if err != nil {
		return fmt.Errorf("identify archive %s: %w", filepath.Base(archivePath), err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("unsupported archive format %s", format.Extension())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind archive: %w", err)
	}

	return extractor.Extract(ctx, file, func(_ context.Context, f archives.FileInfo) error {
		target, err := safeJoin(dest, f.NameInArchive)
		if err != nil {
			return err
		}
		if f.IsDir() {
			if err := checkParents(dest, target); err != nil {
				return err
			}
			return os.MkdirAll(target, 0o755)
		}
		if err := checkParents(dest, filepath.Dir(target)); err != nil {
			return err
		}
		switch {
		case f.LinkTarget != "" && f.Mode()&fs.ModeSymlink != 0:
			if err := checkLinkTarget(dest, target, f.LinkTarget); err != nil {
				return err
			}
			return writeSymlink(target, f.LinkTarget)
		case f.LinkTarget != "":
			linked, err := safeJoin(dest, f.LinkTarget)
			if err != nil {
				return err
			}
			if err := checkParents(dest, filepath.Dir(linked)); err != nil {
				return err
			}
			return writeHardLink(target, linked)
		case !f.Mode().IsRegular():
			return nil
		}

		in, err := f.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", f.NameInArchive, err)
		}
		defer in.Close()
		return writeFile(target, in, f.Mode().Perm())
	})
}

// safeJoin joins name onto root, rejecting entries that would escape it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

// checkLinkTarget rejects a symlink at link whose target is absolute or
// resolves outside root.
func checkLinkTarget(root, link, target string) error {
	target = filepath.FromSlash(target)
	if filepath.IsAbs(target) {
		return fmt.Errorf("symlink %s points to absolute path %q", link, target)
	}
	if !within(root, filepath.Join(filepath.Dir(link), target)) {
		return fmt.Errorf("symlink %s points outside destination: %q", link, target)
	}
	return nil
}

// checkParents fails when dir, or any directory between root and dir, is an
// existing symlink. Writing through one would follow it.
func checkParents(root, dir string) error {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return fmt.Errorf("archive path %s: %w", dir, err)
	}
	if rel == "." {
		return nil
	}
	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("inspect %s: %w", current, err)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("archive writes through symlink %s", current)
		}
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeFile(target string, in io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return os.Chmod(target, mode)
}

func writeSymlink(target, linkTarget string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare link %s: %w", target, err)
	}
	if err := os.Symlink(linkTarget, target); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}

func writeHardLink(target, linked string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare link %s: %w", target, err)
	}
	if err := os.Link(linked, target); err != nil {
		return fmt.Errorf("create hard link %s: %w", target, err)
	}
	return nil
}
