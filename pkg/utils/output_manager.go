package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// CreateBatchOutputDir creates the directory holding one batch's exports
func (om *OutputManager) CreateBatchOutputDir(batchID string) (string, error) {
	batchDir := filepath.Join(om.BaseOutputDir, batchID)

	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create batch output directory: %w", err)
	}

	return batchDir, nil
}

// GetOutputFilePath resolves a file inside a batch directory, refusing path traversal
func (om *OutputManager) GetOutputFilePath(batchID, fileName string) (string, error) {
	if batchID == "" || batchID != filepath.Base(batchID) || batchID == ".." {
		return "", fmt.Errorf("invalid batch id: %q", batchID)
	}
	cleanFileName := filepath.Base(fileName)
	if cleanFileName == "." || cleanFileName == ".." || cleanFileName == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name: %q", fileName)
	}
	return filepath.Join(om.BaseOutputDir, batchID, cleanFileName), nil
}

// GetDownloadURL generates a download URL for a file
func (om *OutputManager) GetDownloadURL(batchID, fileName string) string {
	return fmt.Sprintf("/api/v1/download/%s/%s", batchID, filepath.Base(fileName))
}

// GetContentType determines the response content type based on extension
func (om *OutputManager) GetContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0755)
}
