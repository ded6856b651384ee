// Package aout loads MINIX 1.5 68K a.out executables: it validates the
// header, assembles the text+data+bss image, applies the compact relocation
// stream, and reports the initial break the process starts with.
package aout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/eschaton/MINIXCompat/pkg/minix"
)

// Recognized a_magic values.
const (
	MagicCombined  = 0x04100301 // MINIX 1 combined I&D
	Magic2Combined = 0x0b100301 // MINIX 2 combined I&D
	MagicSeparate  = 0x04200301 // MINIX 1 separate I&D
)

const (
	execFlags   = 0x00000020
	execNoEntry = 0x00000000

	// Memory is allocated in 256-byte clicks.
	clickSize  = 256
	clickShift = 8

	headerSize = 32
)

// clickRound rounds a byte size up to whole clicks.
func clickRound(n uint32) uint32 {
	return (n + clickSize - 1) >> clickShift
}

// Header is a MINIX a.out header in host byte order. Combined-I&D
// executables have their text folded into data during validation, matching
// what the MINIX memory manager does.
type Header struct {
	Magic uint32
	Flags uint32
	Text  uint32
	Data  uint32
	Bss   uint32
	Entry uint32
	Total uint32
	Syms  uint32
}

// Executable is a loaded, relocated MINIX executable.
type Executable struct {
	Header Header

	// Image is the text+data image, relocated for the executable base,
	// padded to whole clicks to cover bss.
	Image []byte

	// InitialBreak is where the process heap begins, relative to the
	// executable base.
	InitialBreak minix.Address

	// Limit is the top of the growable data segment.
	Limit minix.Address
}

// ErrBadExecutable reports a malformed or unrecognized executable. It maps
// to the guest's ENOEXEC.
var ErrBadExecutable = errors.New("not a MINIX 68K executable")

// Load reads, validates and relocates an executable. The resulting image is
// ready to copy to minix.ExecutableBase in guest RAM.
func Load(r io.ReadSeeker) (*Executable, error) {
	hdr, err := loadHeader(r)
	if err != nil {
		return nil, err
	}

	textClicks := clickRound(hdr.Text)
	dataClicks := clickRound(hdr.Data)
	bssClicks := clickRound(hdr.Bss)
	totalClicks := textClicks + dataClicks + bssClicks

	buf := make([]byte, totalClicks*clickSize)

	if _, err := r.Seek(headerSize, io.SeekStart); err != nil {
		return nil, err
	}

	textBase := uint32(0)
	dataBase := textBase + textClicks*clickSize

	if hdr.Text > 0 {
		if _, err := io.ReadFull(r, buf[textBase:textBase+hdr.Text]); err != nil {
			return nil, fmt.Errorf("%w: short text segment", ErrBadExecutable)
		}
	}
	if _, err := io.ReadFull(r, buf[dataBase:dataBase+hdr.Data]); err != nil {
		return nil, fmt.Errorf("%w: short data segment", ErrBadExecutable)
	}

	// Relocation information follows the symbol table, if any.
	if hdr.Syms > 0 {
		if _, err := r.Seek(int64(hdr.Syms), io.SeekCurrent); err != nil {
			return nil, err
		}
	}

	if err := relocate(r, buf); err != nil {
		return nil, err
	}

	return &Executable{
		Header:       *hdr,
		Image:        buf,
		InitialBreak: minix.ExecutableBase + minix.Address(totalClicks*clickSize),
		Limit:        minix.ExecutableLimit,
	}, nil
}

func loadHeader(r io.ReadSeeker) (*Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrBadExecutable)
	}

	hdr := &Header{
		Magic: binary.BigEndian.Uint32(raw[0:]),
		Flags: binary.BigEndian.Uint32(raw[4:]),
		Text:  binary.BigEndian.Uint32(raw[8:]),
		Data:  binary.BigEndian.Uint32(raw[12:]),
		Bss:   binary.BigEndian.Uint32(raw[16:]),
		Entry: binary.BigEndian.Uint32(raw[20:]),
		Total: binary.BigEndian.Uint32(raw[24:]),
		Syms:  binary.BigEndian.Uint32(raw[28:]),
	}

	switch hdr.Magic {
	case MagicCombined, Magic2Combined, MagicSeparate:
	default:
		return nil, fmt.Errorf("%w: bad magic %#08x", ErrBadExecutable, hdr.Magic)
	}
	if hdr.Flags != execFlags {
		return nil, fmt.Errorf("%w: bad flags %#08x", ErrBadExecutable, hdr.Flags)
	}
	if hdr.Entry != execNoEntry {
		return nil, fmt.Errorf("%w: unexpected entry point %#08x", ErrBadExecutable, hdr.Entry)
	}
	if hdr.Total == 0 {
		return nil, fmt.Errorf("%w: zero total size", ErrBadExecutable)
	}

	// Combined I&D is treated as all data.
	if hdr.Magic == MagicCombined || hdr.Magic == Magic2Combined {
		hdr.Data += hdr.Text
		hdr.Text = 0
	}

	return hdr, nil
}

// relocateLong rebases the big-endian longword at off in buf against the
// executable base. Offsets come straight from the file, so an offset past
// the image marks the executable as malformed.
func relocateLong(buf []byte, off uint32) error {
	if off > uint32(len(buf)) || off+4 > uint32(len(buf)) {
		return fmt.Errorf("%w: relocation offset %#x outside image", ErrBadExecutable, off)
	}
	v := binary.BigEndian.Uint32(buf[off:])
	binary.BigEndian.PutUint32(buf[off:], v+uint32(minix.ExecutableBase))
	return nil
}

// relocate applies the compact relocation stream: an initial 32-bit offset,
// then one byte per step where 0 terminates, 1 advances the offset by 254
// without relocating, and any other even value advances by that amount and
// relocates. Odd step values other than 1 are malformed.
func relocate(r io.Reader, buf []byte) error {
	var initial [4]byte
	if _, err := io.ReadFull(r, initial[:]); err != nil {
		// No relocation information at all is fine.
		return nil
	}

	off := binary.BigEndian.Uint32(initial[:])
	if off == 0 {
		return nil
	}
	if err := relocateLong(buf, off); err != nil {
		return err
	}

	var step [1]byte
	for {
		if _, err := io.ReadFull(r, step[:]); err != nil {
			return fmt.Errorf("%w: truncated relocation stream", ErrBadExecutable)
		}
		b := step[0]
		switch {
		case b == 0x00:
			return nil
		case b == 0x01:
			off += 254
		case b&0x01 == 0x00:
			off += uint32(b)
			if err := relocateLong(buf, off); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: bad relocation step %#02x", ErrBadExecutable, b)
		}
	}
}
