package writers

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io/fs"
	"time"
	"unicode/utf16"
)

// 7z property IDs.
const (
	idEnd              = 0x00
	idHeader           = 0x01
	idMainStreamsInfo  = 0x04
	idFilesInfo        = 0x05
	idPackInfo         = 0x06
	idUnpackInfo       = 0x07
	idSubStreamsInfo   = 0x08
	idSize             = 0x09
	idCRC              = 0x0a
	idFolder           = 0x0b
	idCodersUnpackSize = 0x0c
	idNumUnpackStream  = 0x0d
	idEmptyStream      = 0x0e
	idEmptyFile        = 0x0f
	idName             = 0x11
	idMTime            = 0x14
	idWinAttributes    = 0x15
)

const (
	sevenZipStartHeaderSize = 32
	sevenZipMethodLZMA2     = 0x21

	attrDirectory     = 0x10
	attrArchive       = 0x20
	attrUnixExtension = 0x8000

	unixTypeDir     = 0o040000
	unixTypeRegular = 0o100000

	// 100ns intervals between 1601-01-01 and 1970-01-01.
	fileTimeEpochOffset = 116444736000000000
)

var sevenZipSignature = [6]byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}

// sevenZipFile is a file record as stored in the 7z files info block.
type sevenZipFile struct {
	name    string
	dir     bool
	size    uint64
	crc     uint32
	modTime time.Time
	mode    fs.FileMode
}

func (f sevenZipFile) hasStream() bool {
	return !f.dir && f.size > 0
}

func (f sevenZipFile) attributes() uint32 {
	attr := uint32(attrUnixExtension)
	unix := uint32(f.mode.Perm())
	if f.dir {
		attr |= attrDirectory
		unix |= unixTypeDir
	} else {
		attr |= attrArchive
		unix |= unixTypeRegular
	}
	return attr | unix<<16
}

type headerBuffer struct {
	bytes.Buffer
}

// writeNumber writes v in the 7z variable length encoding: the count of
// leading one bits in the first byte is the number of extra little endian
// bytes that follow.
func (b *headerBuffer) writeNumber(v uint64) {
	var (
		first byte
		mask  byte = 0x80
		i     int
	)
	for i = 0; i < 8; i++ {
		if v < uint64(1)<<(7*(i+1)) {
			first |= byte(v >> (8 * i))
			break
		}
		first |= mask
		mask >>= 1
	}
	b.WriteByte(first)
	for ; i > 0; i-- {
		b.WriteByte(byte(v))
		v >>= 8
	}
}

func (b *headerBuffer) writeUint32(v uint32) {
	b.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (b *headerBuffer) writeUint64(v uint64) {
	b.Write(binary.LittleEndian.AppendUint64(nil, v))
}

// writeBoolVector packs bits most significant first.
func (b *headerBuffer) writeBoolVector(bits []bool) {
	var (
		cur  byte
		mask byte = 0x80
	)
	for _, bit := range bits {
		if bit {
			cur |= mask
		}
		mask >>= 1
		if mask == 0 {
			b.WriteByte(cur)
			cur, mask = 0, 0x80
		}
	}
	if mask != 0x80 {
		b.WriteByte(cur)
	}
}

func (b *headerBuffer) writeProperty(id byte, data []byte) {
	b.WriteByte(id)
	b.writeNumber(uint64(len(data)))
	b.Write(data)
}

// encodeSevenZipHeader builds a plain (unencoded) header describing one
// LZMA2 folder of packSize bytes holding the streams of files in order.
func encodeSevenZipHeader(files []sevenZipFile, packSize uint64, dictProp byte) []byte {
	var b headerBuffer
	b.WriteByte(idHeader)

	var streams []sevenZipFile
	for _, f := range files {
		if f.hasStream() {
			streams = append(streams, f)
		}
	}
	if len(streams) > 0 {
		encodeStreamsInfo(&b, streams, packSize, dictProp)
	}

	encodeFilesInfo(&b, files)
	b.WriteByte(idEnd)

	return b.Bytes()
}

func encodeStreamsInfo(b *headerBuffer, streams []sevenZipFile, packSize uint64, dictProp byte) {
	var unpackSize uint64
	for _, s := range streams {
		unpackSize += s.size
	}

	b.WriteByte(idMainStreamsInfo)

	b.WriteByte(idPackInfo)
	b.writeNumber(0) // pack position
	b.writeNumber(1) // pack streams
	b.WriteByte(idSize)
	b.writeNumber(packSize)
	b.WriteByte(idEnd)

	b.WriteByte(idUnpackInfo)
	b.WriteByte(idFolder)
	b.writeNumber(1) // folders
	b.WriteByte(0)   // not external
	b.writeNumber(1) // coders
	// 1 byte method ID, simple coder, has properties.
	b.WriteByte(0x01 | 0x20)
	b.WriteByte(sevenZipMethodLZMA2)
	b.writeNumber(1)
	b.WriteByte(dictProp)
	b.WriteByte(idCodersUnpackSize)
	b.writeNumber(unpackSize)
	b.WriteByte(idEnd)

	b.WriteByte(idSubStreamsInfo)
	b.WriteByte(idNumUnpackStream)
	b.writeNumber(uint64(len(streams)))
	if len(streams) > 1 {
		b.WriteByte(idSize)
		for _, s := range streams[:len(streams)-1] {
			b.writeNumber(s.size)
		}
	}
	b.WriteByte(idCRC)
	b.WriteByte(1) // all defined
	for _, s := range streams {
		b.writeUint32(s.crc)
	}
	b.WriteByte(idEnd)

	b.WriteByte(idEnd)
}

func encodeFilesInfo(b *headerBuffer, files []sevenZipFile) {
	b.WriteByte(idFilesInfo)
	b.writeNumber(uint64(len(files)))

	emptyStream := make([]bool, len(files))
	var emptyFile []bool
	hasEmptyStream, hasEmptyFile := false, false
	for i, f := range files {
		if f.hasStream() {
			continue
		}
		emptyStream[i] = true
		hasEmptyStream = true
		emptyFile = append(emptyFile, !f.dir)
		if !f.dir {
			hasEmptyFile = true
		}
	}

	if hasEmptyStream {
		var prop headerBuffer
		prop.writeBoolVector(emptyStream)
		b.writeProperty(idEmptyStream, prop.Bytes())
	}
	if hasEmptyFile {
		var prop headerBuffer
		prop.writeBoolVector(emptyFile)
		b.writeProperty(idEmptyFile, prop.Bytes())
	}

	var names headerBuffer
	names.WriteByte(0) // not external
	for _, f := range files {
		for _, u := range utf16.Encode([]rune(f.name)) {
			names.Write(binary.LittleEndian.AppendUint16(nil, u))
		}
		names.Write([]byte{0, 0})
	}
	b.writeProperty(idName, names.Bytes())

	var times headerBuffer
	times.WriteByte(1) // all defined
	times.WriteByte(0) // not external
	for _, f := range files {
		times.writeUint64(fileTime(f.modTime))
	}
	b.writeProperty(idMTime, times.Bytes())

	var attrs headerBuffer
	attrs.WriteByte(1) // all defined
	attrs.WriteByte(0) // not external
	for _, f := range files {
		attrs.writeUint32(f.attributes())
	}
	b.writeProperty(idWinAttributes, attrs.Bytes())

	b.WriteByte(idEnd)
}

// encodeStartHeader returns the fixed 32 byte signature header pointing at
// a header of the given bytes located packSize bytes after it.
func encodeStartHeader(packSize uint64, header []byte) []byte {
	start := make([]byte, sevenZipStartHeaderSize)
	copy(start, sevenZipSignature[:])
	start[6], start[7] = 0, 4 // format version 0.4
	binary.LittleEndian.PutUint64(start[12:], packSize)
	binary.LittleEndian.PutUint64(start[20:], uint64(len(header)))
	binary.LittleEndian.PutUint32(start[28:], crc32.ChecksumIEEE(header))
	binary.LittleEndian.PutUint32(start[8:], crc32.ChecksumIEEE(start[12:]))
	return start
}

func fileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100 + fileTimeEpochOffset)
}

// lzma2DictProp returns the LZMA2 dictionary property byte for the
// smallest dictionary that holds dictCap bytes.
func lzma2DictProp(dictCap int) byte {
	for p := 0; p < 40; p++ {
		if (2|(p&1))<<(p/2+11) >= dictCap {
			return byte(p)
		}
	}
	return 40
}
