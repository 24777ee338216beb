// Package archive builds the deployable zip archive Lambda's
// provided.al2023 custom runtime expects from a function module directory:
// a single "bootstrap" executable at the archive root.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Builder is the production awsprovider.Packager: it zips a pre-built
// "bootstrap" binary from the function module directory, the same
// entrypoint name plan.go's CreateFunction call hard-codes as Handler.
type Builder struct{}

// Pack reads <functionModule>/bootstrap and returns it wrapped in a zip
// archive with that same file name, marked executable (mode 0755).
func (Builder) Pack(_ context.Context, functionModule string) ([]byte, error) {
	bootstrapPath := filepath.Join(functionModule, "bootstrap")
	info, err := os.Stat(bootstrapPath)
	if err != nil {
		return nil, fmt.Errorf("cloudify: stat bootstrap binary: %w", err)
	}
	data, err := os.ReadFile(bootstrapPath)
	if err != nil {
		return nil, fmt.Errorf("cloudify: read bootstrap binary: %w", err)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, fmt.Errorf("cloudify: build zip header: %w", err)
	}
	hdr.Name = "bootstrap"
	hdr.Method = zip.Deflate
	hdr.SetMode(0o755)

	fw, err := w.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("cloudify: create zip entry: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("cloudify: write zip entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cloudify: close zip archive: %w", err)
	}
	return buf.Bytes(), nil
}
