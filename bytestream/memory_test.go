package bytestream

import "testing"

func TestMemoryReadWrite(t *testing.T) {
	m := NewMemory(nil)
	if n, err := m.Write([]byte("hello")); err != nil || n != 5 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if err := m.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	if n, err := m.Read(buf); err != nil || n != 5 {
		t.Fatalf("Read: n=%d err=%v", n, err)
	}
	if string(buf) != "hello" {
		t.Errorf("Read = %q, want %q", buf, "hello")
	}
	size, _ := m.Size()
	if size != 5 {
		t.Errorf("Size() = %d, want 5", size)
	}
}

func TestExtentClampsToRange(t *testing.T) {
	m := NewMemory([]byte("0123456789"))
	e := NewExtent(m, 3, 4) // "3456"
	buf := make([]byte, 10)
	n, err := e.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 4 || string(buf[:n]) != "3456" {
		t.Errorf("Read = %q (n=%d), want %q", buf[:n], n, "3456")
	}
	if _, err := e.Read(buf); err == nil {
		t.Error("expected an error reading past the extent")
	}
}
