package aout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

type testExec struct {
	magic uint32
	flags uint32
	text  uint32
	data  uint32
	bss   uint32
	entry uint32
	total uint32
	syms  uint32

	body  []byte
	reloc []byte
}

func (e *testExec) bytes() []byte {
	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[0:], e.magic)
	binary.BigEndian.PutUint32(hdr[4:], e.flags)
	binary.BigEndian.PutUint32(hdr[8:], e.text)
	binary.BigEndian.PutUint32(hdr[12:], e.data)
	binary.BigEndian.PutUint32(hdr[16:], e.bss)
	binary.BigEndian.PutUint32(hdr[20:], e.entry)
	binary.BigEndian.PutUint32(hdr[24:], e.total)
	binary.BigEndian.PutUint32(hdr[28:], e.syms)

	var buf bytes.Buffer
	buf.Write(hdr[:])
	buf.Write(e.body)
	buf.Write(e.reloc)
	return buf.Bytes()
}

func validExec(body []byte) *testExec {
	return &testExec{
		magic: MagicCombined,
		flags: execFlags,
		data:  uint32(len(body)),
		total: 0x10000,
		body:  body,
	}
}

func TestLoadCombined(t *testing.T) {
	body := []byte{0x4e, 0x71, 0x4e, 0x75}
	exe, err := Load(bytes.NewReader(validExec(body).bytes()))
	if err != nil {
		t.Fatal(err)
	}

	// Combined I&D folds text into data.
	if exe.Header.Text != 0 || exe.Header.Data != uint32(len(body)) {
		t.Fatalf("unexpected folded header: %+v", exe.Header)
	}
	if !bytes.Equal(exe.Image[:len(body)], body) {
		t.Fatalf("image does not start with body: %x", exe.Image[:len(body)])
	}
	// A partial click pads to a whole one.
	if len(exe.Image) != clickSize {
		t.Fatalf("expected %d byte image; got %d", clickSize, len(exe.Image))
	}
	if exe.InitialBreak != minix.ExecutableBase+clickSize {
		t.Fatalf("expected initial break %#x; got %#x", minix.ExecutableBase+clickSize, exe.InitialBreak)
	}
	if exe.Limit != minix.ExecutableLimit {
		t.Fatalf("expected limit %#x; got %#x", minix.ExecutableLimit, exe.Limit)
	}
}

func TestLoadBadMagic(t *testing.T) {
	e := validExec([]byte{0})
	e.magic = 0xdeadbeef
	_, err := Load(bytes.NewReader(e.bytes()))
	if !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestLoadBadFlags(t *testing.T) {
	e := validExec([]byte{0})
	e.flags = 0
	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestLoadEntryPointRejected(t *testing.T) {
	e := validExec([]byte{0})
	e.entry = 0x1000
	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestLoadZeroTotal(t *testing.T) {
	e := validExec([]byte{0})
	e.total = 0
	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestLoadShortHeader(t *testing.T) {
	if _, err := Load(bytes.NewReader([]byte{1, 2, 3})); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestRelocation(t *testing.T) {
	// Two longwords to relocate: at offset 0 and offset 8.
	body := make([]byte, 12)
	binary.BigEndian.PutUint32(body[0:], 0x100)
	binary.BigEndian.PutUint32(body[8:], 0x200)

	e := validExec(body)
	var reloc bytes.Buffer
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 0) // first relocation at offset 0
	reloc.Write(initial[:])
	// Offset 0 encodes "no relocation"; instead start at 8 via a step.
	e.reloc = reloc.Bytes()

	exe, err := Load(bytes.NewReader(e.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	// Initial offset 0 terminates the stream with nothing relocated.
	if got := binary.BigEndian.Uint32(exe.Image[0:]); got != 0x100 {
		t.Fatalf("longword relocated unexpectedly: %#x", got)
	}
}

func TestRelocationStream(t *testing.T) {
	body := make([]byte, 16)
	binary.BigEndian.PutUint32(body[4:], 0x100)
	binary.BigEndian.PutUint32(body[12:], 0x200)

	e := validExec(body)
	var reloc bytes.Buffer
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4) // relocate the longword at 4
	reloc.Write(initial[:])
	reloc.WriteByte(8)    // advance 8 and relocate the longword at 12
	reloc.WriteByte(0x00) // done
	e.reloc = reloc.Bytes()

	exe, err := Load(bytes.NewReader(e.bytes()))
	if err != nil {
		t.Fatal(err)
	}

	base := uint32(minix.ExecutableBase)
	if got := binary.BigEndian.Uint32(exe.Image[4:]); got != 0x100+base {
		t.Fatalf("expected %#x at offset 4; got %#x", 0x100+base, got)
	}
	if got := binary.BigEndian.Uint32(exe.Image[12:]); got != 0x200+base {
		t.Fatalf("expected %#x at offset 12; got %#x", 0x200+base, got)
	}
}

func TestRelocationOffsetOutsideImage(t *testing.T) {
	body := make([]byte, 8)
	e := validExec(body)

	var reloc bytes.Buffer
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 0x000ffff0) // far past the image
	reloc.Write(initial[:])
	e.reloc = reloc.Bytes()

	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestRelocationStepPastImage(t *testing.T) {
	body := make([]byte, 8)
	e := validExec(body)

	var reloc bytes.Buffer
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4)
	reloc.Write(initial[:])
	reloc.WriteByte(0xfe) // steps beyond the last longword
	e.reloc = reloc.Bytes()

	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestRelocationBadStep(t *testing.T) {
	body := make([]byte, 8)
	e := validExec(body)

	var reloc bytes.Buffer
	var initial [4]byte
	binary.BigEndian.PutUint32(initial[:], 4)
	reloc.Write(initial[:])
	reloc.WriteByte(0x03) // odd steps other than 1 are malformed
	e.reloc = reloc.Bytes()

	if _, err := Load(bytes.NewReader(e.bytes())); !errors.Is(err, ErrBadExecutable) {
		t.Fatalf("expected ErrBadExecutable; got %v", err)
	}
}

func TestSeparateIDKeepsText(t *testing.T) {
	body := make([]byte, 8)
	e := validExec(body)
	e.magic = MagicSeparate
	e.text = 4
	e.data = 4

	exe, err := Load(bytes.NewReader(e.bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if exe.Header.Text != 4 || exe.Header.Data != 4 {
		t.Fatalf("separate I&D header modified: %+v", exe.Header)
	}
	// One click each for text and data.
	if len(exe.Image) != 2*clickSize {
		t.Fatalf("expected %d byte image; got %d", 2*clickSize, len(exe.Image))
	}
}
