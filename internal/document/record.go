package document

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"nbterm/internal/notebook"
)

// FormatJSON is the only notebook file format modeled.
const FormatJSON = "json"

// MimeType is the mimetype Jupyter reports for notebook files.
const MimeType = "application/x-ipynb+json"

// ErrNotWritable is returned when saving to a location that forbids it.
var ErrNotWritable = errors.New("notebook is not writable")

// FileInfo is the persistence metadata reported by a contents store.
type FileInfo struct {
	MimeType  string
	Created   *time.Time
	LastSaved *time.Time
	Writable  bool
}

// FileRecord wraps a DocumentState with the state of its backing file.
// Saving, Loading and Err describe in-memory operation status and are never
// written to the notebook file.
type FileRecord struct {
	format    string
	path      string
	mimeType  string
	created   *time.Time
	lastSaved *time.Time
	writable  bool
	saving    bool
	loading   bool
	err       error
	doc       DocumentState
}

// NewFileRecord returns the default record for path: empty notebook, no
// focus, no kernel, writable, idle, no error.
func NewFileRecord(path string) FileRecord {
	return FileRecord{
		format:   FormatJSON,
		path:     path,
		writable: true,
		doc:      NewDocumentState(notebook.Empty()),
	}
}

func (r FileRecord) Format() string             { return r.format }
func (r FileRecord) Path() string               { return r.path }
func (r FileRecord) MimeType() string           { return r.mimeType }
func (r FileRecord) Writable() bool             { return r.writable }
func (r FileRecord) Saving() bool               { return r.saving }
func (r FileRecord) Loading() bool              { return r.loading }
func (r FileRecord) Err() error                 { return r.err }
func (r FileRecord) Document() DocumentState    { return r.doc }
func (r FileRecord) Created() (time.Time, bool) { return derefTime(r.created) }

// LastSaved returns when the file was last written.
func (r FileRecord) LastSaved() (time.Time, bool) { return derefTime(r.lastSaved) }

// Dirty reports unsaved changes.
func (r FileRecord) Dirty() bool { return r.doc.Dirty() }

// WithDocument replaces the document state.
func (r FileRecord) WithDocument(d DocumentState) FileRecord {
	r.doc = d
	return r
}

// WithWritable sets whether the backing location permits saving.
func (r FileRecord) WithWritable(w bool) FileRecord {
	r.writable = w
	return r
}

// BeginLoad marks a load in progress.
func (r FileRecord) BeginLoad() FileRecord {
	r.loading = true
	return r
}

// Loaded installs freshly parsed content. Live and saved content both become
// nb; the kernel binding survives a reload, everything else is reset.
func (r FileRecord) Loaded(nb notebook.Notebook, info FileInfo) FileRecord {
	kernel := r.doc.kernel
	r.doc = NewDocumentState(nb).WithKernel(kernel)
	r.loading = false
	r.err = nil
	r.mimeType = info.MimeType
	r.created = copyTime(info.Created)
	r.lastSaved = copyTime(info.LastSaved)
	r.writable = info.Writable
	return r
}

// LoadFailed records a failed load.
func (r FileRecord) LoadFailed(err error) FileRecord {
	r.loading = false
	r.err = err
	return r
}

// BeginSave marks a save in progress.
func (r FileRecord) BeginSave() FileRecord {
	r.saving = true
	return r
}

// SaveSucceeded records that written, the content captured when the save
// started, is now on disk. Edits made while saving stay dirty.
func (r FileRecord) SaveSucceeded(written notebook.Notebook, at time.Time) FileRecord {
	r.doc = r.doc.WithSavedNotebook(written.Clone())
	r.saving = false
	r.err = nil
	r.lastSaved = &at
	return r
}

// SaveFailed records a failed save. The saved snapshot is unchanged.
func (r FileRecord) SaveFailed(err error) FileRecord {
	r.saving = false
	r.err = err
	return r
}

// Validate checks the fields a contents store relies on.
func (r FileRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.format, validation.Required, validation.In(FormatJSON)),
		validation.Field(&r.path, validation.Required),
	)
}

// StaleFocus reports focus references to cells that no longer exist.
func (r FileRecord) StaleFocus() []notebook.CellID {
	var stale []notebook.CellID
	nb := r.doc.content
	if id, ok := r.doc.EditorFocus(); ok && !nb.Has(id) {
		stale = append(stale, id)
	}
	if id, ok := r.doc.CellFocus(); ok && !nb.Has(id) {
		stale = append(stale, id)
	}
	return stale
}

func derefTime(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
