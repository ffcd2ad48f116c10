package model

// NamedFile is the output artifact of a resolution: a tagged MP3 payload and
// the file name it should be delivered under.
type NamedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Size returns the payload length in bytes.
func (f *NamedFile) Size() int {
	return len(f.Data)
}

// Release drops the payload once the file has been delivered, so a
// long-running process does not keep every downloaded track in memory.
func (f *NamedFile) Release() {
	f.Data = nil
}
