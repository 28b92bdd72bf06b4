package contents

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FileType classifies a directory listing entry.
type FileType string

const (
	FileUnknown   FileType = "unknown"
	FileNotebook  FileType = "notebook"
	FileDirectory FileType = "directory"
	FileFile      FileType = "file"
	// FileDummy marks the synthetic ".." row that leads to the parent.
	FileDummy FileType = "dummy"
)

// NotebookExt is the file extension of notebooks.
const NotebookExt = ".ipynb"

// Classify maps a name and mode to a FileType.
func Classify(name string, mode fs.FileMode) FileType {
	switch {
	case mode.IsDir():
		return FileDirectory
	case !mode.IsRegular():
		return FileUnknown
	case strings.EqualFold(filepath.Ext(name), NotebookExt):
		return FileNotebook
	default:
		return FileFile
	}
}
