package domain

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadFile is a named blob selected for ingestion.
type UploadFile struct {
	Name string
	Size int64
	// Open returns a fresh reader over the contents. Called once per upload.
	Open func() (io.ReadCloser, error)
}

// Extension returns the lower-cased extension without the dot.
func (f UploadFile) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}

// IsCSV reports whether the file carries a csv extension, case-insensitively.
func (f UploadFile) IsCSV() bool { return f.Extension() == "csv" }

// FileFromPath describes a file on disk as an UploadFile.
func FileFromPath(path string) (UploadFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return UploadFile{}, err
	}
	if info.IsDir() {
		return UploadFile{}, fmt.Errorf("%s is a directory", path)
	}
	return UploadFile{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// FileFromBytes wraps in-memory contents as an UploadFile.
func FileFromBytes(name string, data []byte) UploadFile {
	return UploadFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// UploadState is the lifecycle position of an UploadJob.
type UploadState int

const (
	UploadIdle UploadState = iota
	UploadReady
	UploadUploading
	UploadSucceeded
	UploadFailed
)

// String returns the string representation of UploadState
func (s UploadState) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadReady:
		return "ready"
	case UploadUploading:
		return "uploading"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is Succeeded or Failed.
func (s UploadState) Terminal() bool {
	return s == UploadSucceeded || s == UploadFailed
}

// UploadStats is the processed/total pair reported after a successful ingest.
type UploadStats struct {
	Total     int
	Processed int
}

// UploadJob is a snapshot of one file selection and its submission.
type UploadJob struct {
	ID         string
	File       *UploadFile
	BatchSize  int
	State      UploadState
	Message    string
	Stats      *UploadStats
	StartedAt  time.Time
	FinishedAt time.Time
}
