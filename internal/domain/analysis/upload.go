package analysis

// Upload is a selected file: an opaque payload plus the metadata the
// validation policy cares about. At most one is held by a controller at a
// time and it is never persisted by the controller itself.
type Upload struct {
	Filename string
	MIME     string
	Data     []byte
}

// Size returns the payload size in bytes.
func (u Upload) Size() int64 {
	return int64(len(u.Data))
}
