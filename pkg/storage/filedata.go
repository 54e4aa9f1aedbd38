// Package storage implements the back-end abstraction: the Uploader,
// Reader and Manager service roles, the per-storage settings, the adapter
// and storage registries, and the Storage façade that dispatches
// operations by capability and synthesizes the missing ones.
package storage

// StorageData is the opaque mapping a back-end returns with a completed
// upload and may read back on later operations.
type StorageData map[string]interface{}

// Copy deep-copies the mapping one level of nesting down, which covers
// everything the shipped adapters store in it.
func (d StorageData) Copy() StorageData {
	if d == nil {
		return nil
	}

	copied := make(StorageData, len(d))
	for k, v := range d {
		switch typed := v.(type) {
		case map[string]interface{}:
			inner := make(map[string]interface{}, len(typed))
			for ik, iv := range typed {
				inner[ik] = iv
			}
			copied[k] = inner
		case []interface{}:
			inner := make([]interface{}, len(typed))
			copy(inner, typed)
			copied[k] = inner
		default:
			copied[k] = v
		}
	}

	return copied
}

// FileData describes a completed upload as reported by a back-end.
type FileData struct {
	Location    string
	Size        int64
	ContentType string
	Hash        string
	StorageData StorageData
}

func (d *FileData) Copy() *FileData {
	if d == nil {
		return nil
	}

	copied := *d
	copied.StorageData = d.StorageData.Copy()

	return &copied
}

// MultipartData is FileData plus the bookkeeping of an upload in
// progress: the declared total size, the bytes received so far, and
// whatever resumption cursor the back-end keeps in StorageData.
type MultipartData struct {
	FileData
	Uploaded int64
}

func (d *MultipartData) Copy() *MultipartData {
	if d == nil {
		return nil
	}

	copied := *d
	copied.StorageData = d.StorageData.Copy()

	return &copied
}

// Extras carries operation specific options from the caller down to the
// back-end.
type Extras map[string]interface{}

// Copy shields back-ends from caller state and vice versa.
func (e Extras) Copy() Extras {
	if e == nil {
		return nil
	}

	copied := make(Extras, len(e))
	for k, v := range e {
		copied[k] = v
	}

	return copied
}

func (e Extras) GetString(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}

	return ""
}

func (e Extras) GetInt64(key string) (int64, bool) {
	switch v := e[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
