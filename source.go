package hookbuild

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// sourceMarker is created by git when the vendor submodule is checked out.
const sourceMarker = ".git"

// SourceFetcher makes sure the vendored source tree exists before the
// native build runs.
//
// Every step is best effort: failures are logged and swallowed, and a tree
// that is still missing surfaces later as a CMake configure error.
type SourceFetcher struct {
	Runner Runner // nil uses NewExecRunner(nil, nil)
}

// NewSourceFetcher returns a SourceFetcher running git through runner.
func NewSourceFetcher(runner Runner) *SourceFetcher {
	return &SourceFetcher{Runner: runner}
}

// Present reports whether the vendored tree has been materialized.
func (f *SourceFetcher) Present(config *BuildConfig) bool {
	return pathExists(filepath.Join(config.SourceDir(), sourceMarker))
}

// Ensure fetches the submodule when the marker is missing, then falls back
// to config.SourceArchive if one is configured.
func (f *SourceFetcher) Ensure(ctx context.Context, config *BuildConfig) {
	log := config.logger().With("source", config.SourceDir())

	if f.Present(config) {
		log.Debug("vendored source present")
		return
	}

	cmd := Command{
		Dir:  config.manifestDir(),
		Name: "git",
		Args: []string{"submodule", "update", "--init"},
		Env:  config.Env,
	}
	log.Info("fetching vendored source", "command", cmd.String())
	if _, err := f.runner().Run(ctx, cmd); err != nil {
		log.Warn("submodule fetch failed, continuing", "error", err)
	}

	if f.Present(config) || config.SourceArchive == "" {
		return
	}

	log.Info("extracting source archive", "archive", config.SourceArchive)
	if err := extractTarXz(config.SourceArchive, config.SourceDir(), log); err != nil {
		log.Warn("source archive extraction failed, continuing", "error", err)
	}
}

func (f *SourceFetcher) runner() Runner {
	if f.Runner == nil {
		return NewExecRunner(nil, nil)
	}
	return f.Runner
}

// extractTarXz unpacks a .tar.xz archive into destDir. A single top-level
// directory shared by every entry (as produced by git archive --prefix or
// GitHub tarballs) is stripped. Every entry is checked against destDir
// before anything is written.
func extractTarXz(archivePath, destDir string, log *slog.Logger) error {
	prefix, err := scanArchive(archivePath, destDir)
	if err != nil {
		return err
	}

	err = walkTarXz(archivePath, func(hdr *tar.Header, r io.Reader) error {
		target, ok := archiveTarget(destDir, prefix, hdr.Name)
		if !ok {
			return nil
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(target, 0o755)
		case tar.TypeReg:
			return writeArchiveFile(target, r, os.FileMode(hdr.Mode).Perm())
		default:
			log.Debug("skipping archive entry", "name", hdr.Name, "type", hdr.Typeflag)
			return nil
		}
	})
	if err != nil {
		return err
	}

	// The archive stands in for the submodule checkout.
	return os.MkdirAll(filepath.Join(destDir, sourceMarker), 0o755)
}

// scanArchive returns the top-level directory to strip and fails if any
// entry would land outside destDir.
func scanArchive(archivePath, destDir string) (string, error) {
	var headers []*tar.Header
	err := walkTarXz(archivePath, func(hdr *tar.Header, _ io.Reader) error {
		headers = append(headers, hdr)
		return nil
	})
	if err != nil {
		return "", err
	}

	prefix := commonArchivePrefix(headers)
	for _, hdr := range headers {
		target, ok := archiveTarget(destDir, prefix, hdr.Name)
		if ok && !withinDir(destDir, target) {
			return "", fmt.Errorf("archive entry %q escapes %s", hdr.Name, destDir)
		}
	}
	return prefix, nil
}

// walkTarXz calls fn for every entry of a .tar.xz archive. pax headers
// only carry metadata and are not passed on.
func walkTarXz(archivePath string, fn func(hdr *tar.Header, r io.Reader) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}

	tr := tar.NewReader(xzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader || hdr.Typeflag == tar.TypeXHeader {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func commonArchivePrefix(headers []*tar.Header) string {
	prefix := ""
	for i, hdr := range headers {
		name := strings.TrimPrefix(filepath.ToSlash(hdr.Name), "./")
		top, _, nested := strings.Cut(name, "/")
		if !nested && hdr.Typeflag != tar.TypeDir {
			return ""
		}
		if i == 0 {
			prefix = top
		} else if top != prefix {
			return ""
		}
	}
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// archiveTarget maps an entry name to its path under destDir. It reports
// false for the stripped top-level directory itself.
func archiveTarget(destDir, prefix, entry string) (string, bool) {
	name := strings.TrimPrefix(strings.TrimPrefix(filepath.ToSlash(entry), "./"), prefix)
	if name == "" || name == "." || name+"/" == prefix {
		return "", false
	}
	return filepath.Join(destDir, filepath.FromSlash(name)), true
}

func writeArchiveFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
