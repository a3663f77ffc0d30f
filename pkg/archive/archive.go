package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
)

// File is one archive entry backed by a file on disk.
type File struct {
	Name string
	Path string
}

// Build packs the files into a zip archive, keeping the given order.
func Build(files []File) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, file := range files {
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", file.Name, err)
		}
		entry, err := zw.Create(file.Name)
		if err != nil {
			return nil, fmt.Errorf("archive: add %s: %w", file.Name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return nil, fmt.Errorf("archive: write %s: %w", file.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: finalize: %w", err)
	}
	return buf.Bytes(), nil
}
