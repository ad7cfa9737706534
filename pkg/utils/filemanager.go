// =============================================================================
// Packing List Ingest - File Manager Utility
// =============================================================================
//
// This module provides the file handling around the engine:
//   - Input discovery and size-limited reading
//   - Content type sniffing
//   - Output naming and JSON writing
//   - Source disposal (archive or delete) after every attempt
//   - Run summaries
//
// DISPOSAL STRATEGY:
//   - With keep_source set, inputs are moved to input_archive
//   - Otherwise inputs are deleted
//   - Disposal runs whether parsing succeeded or failed
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Content types handed to the engine.
const (
	ContentTypeXLSX    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeExcel   = "application/vnd.ms-excel"
	ContentTypeCSV     = "text/csv"
	ContentTypeXML     = "application/xml"
	ContentTypeTextXML = "text/xml"
)

// ErrFileTooLarge is returned by ReadInput when a file exceeds the limit.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")

// inputExtensions maps supported file extensions to their content type.
var inputExtensions = map[string]string{
	".xlsx": ContentTypeXLSX,
	".xls":  ContentTypeExcel,
	".csv":  ContentTypeCSV,
	".xml":  ContentTypeXML,
}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the process command.
type FileManager struct {
	// InputDir is the directory where packing lists are placed.
	InputDir string

	// OutputDir is the directory where JSON results are written.
	OutputDir string

	// InputArchiveDir receives processed inputs when KeepSource is set.
	InputArchiveDir string

	// KeepSource archives inputs instead of deleting them.
	KeepSource bool

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/list.xlsx
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string, keepSource bool) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
		KeepSource:      keepSource,
	}
}

// =============================================================================
// FILE DISCOVERY AND READING
// =============================================================================

// DiscoverInputFiles lists the supported files directly inside InputDir,
// sorted by name.
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, ok := inputExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			files = append(files, filepath.Join(fm.InputDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadInput reads a file, refusing anything larger than maxSize bytes.
// A maxSize of zero or less disables the check.
func ReadInput(path string, maxSize int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if maxSize > 0 {
		r = io.LimitReader(file, maxSize+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", filepath.Base(path), ErrFileTooLarge, maxSize)
	}
	return data, nil
}

// DetectContentType sniffs data and falls back to the file extension.
//
// Sniffing walks the detected MIME type and its parents, so a
// Spreadsheet 2003 document (text/xml) and an xlsx container (a zip) both
// resolve. Plain text with a .csv name resolves to text/csv.
func DetectContentType(path string, data []byte) string {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is(ContentTypeXLSX):
			return ContentTypeXLSX
		case m.Is(ContentTypeExcel):
			return ContentTypeExcel
		case m.Is(ContentTypeCSV):
			return ContentTypeCSV
		case m.Is(ContentTypeTextXML), m.Is(ContentTypeXML):
			return ContentTypeXML
		}
	}

	if ct, ok := inputExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// =============================================================================
// OUTPUT
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {name}      - Input file name without extension
//   - inputPath: The source file.
//
// RETURNS:
//   - The generated file name, always ending in .json.
func GenerateOutputFileName(format, inputPath string) string {
	base := filepath.Base(inputPath)
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": time.Now().Format("20060102_150405"),
		"{name}":      strings.TrimSuffix(base, filepath.Ext(base)),
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".json") {
		result += ".json"
	}
	return result
}

// WriteJSON writes v as indented JSON to name inside OutputDir.
// The file is written under a temporary name and renamed into place.
func (fm *FileManager) WriteJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode output: %w", err)
	}

	path := filepath.Join(fm.OutputDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize output: %w", err)
	}
	return path, nil
}

// =============================================================================
// SOURCE DISPOSAL
// =============================================================================

// Dispose archives or deletes a processed input, depending on KeepSource.
//
// RETURNS:
//   - The archive path, or "" when the file was deleted.
//   - An error if the file could not be moved or removed.
func (fm *FileManager) Dispose(filePath string) (string, error) {
	if fm.KeepSource {
		return fm.ArchiveInputFile(filePath)
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove input: %w", err)
	}
	return "", nil
}

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file. An existing archive
// entry with the same name is never overwritten.
func (fm *FileManager) getArchivePath(filePath string) string {
	dir := fm.InputArchiveDir
	if fm.UseTimestampSubdirs {
		now := time.Now()
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	fileName := filepath.Base(filePath)
	path := filepath.Join(dir, fileName)
	if FileExists(path) {
		ext := filepath.Ext(fileName)
		path = filepath.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(fileName, ext), uuid.NewString()[:8], ext))
	}
	return path
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalParcels    int
	TotalItems      int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed file.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ContentType string
	Parcels     int
	Items       int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to w.
func WriteSummaryLog(w io.Writer, summary ProcessingSummary) error {
	writer := bufio.NewWriter(w)

	fmt.Fprintf(writer, "=== Processing Complete ===\n"+
		"Total files:     %d\n"+
		"Successful:      %d\n"+
		"Errors:          %d\n"+
		"Parcels:         %d\n"+
		"Items:           %d\n"+
		"Time elapsed:    %s\n",
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalParcels,
		summary.TotalItems,
		summary.EndTime.Sub(summary.StartTime))

	for _, pf := range summary.ProcessedFiles {
		fmt.Fprintf(writer, "  ok   %s -> %s (%d parcels, %d items)\n",
			filepath.Base(pf.InputFile), filepath.Base(pf.OutputFile), pf.Parcels, pf.Items)
	}
	for _, ff := range summary.FailedFilesList {
		fmt.Fprintf(writer, "  fail %s: %s\n", filepath.Base(ff.InputFile), ff.ErrorMessage)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
