package bytestream

import "os"

// File is a Stream backed by a file descriptor, matching the
// "file-descriptor" backing named in SPEC_FULL.md §5.8.
type File struct {
	f *os.File
}

// OpenFile wraps an already-open file as a Stream.
func OpenFile(f *os.File) *File {
	return &File{f: f}
}

func (s *File) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, wrapStreamIO(err)
	}
	return info.Size(), nil
}

func (s *File) Offset() (int64, error) {
	off, err := s.f.Seek(0, os.SEEK_CUR)
	return off, wrapStreamIO(err)
}

func (s *File) Seek(offset int64) error {
	_, err := s.f.Seek(offset, os.SEEK_SET)
	return wrapStreamIO(err)
}

func (s *File) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	return n, wrapStreamIO(err)
}

func (s *File) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	return n, wrapStreamIO(err)
}

func (s *File) Close() error {
	return wrapStreamIO(s.f.Close())
}
