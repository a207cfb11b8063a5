package integrity

import (
	"bytes"
	"encoding/binary"
	"os"
	"strconv"
	"strings"
)

const headerReadSize = 2048

// CheckFile re-validates a carved file against the structural rules for
// its declared type. It never mutates or removes the file.
func CheckFile(path, fileType string) *Result {
	r := newResult(path, fileType)

	stat, err := os.Stat(path)
	if err != nil {
		r.issue("file does not exist: %v", err)
		return r
	}
	r.Size = stat.Size()
	if r.Size == 0 {
		r.issue("file is empty")
		return r
	}

	data, err := os.ReadFile(path)
	if err != nil {
		r.issue("error reading file: %v", err)
		return r
	}
	if int64(len(data)) > headerReadSize {
		data = data[:headerReadSize]
	}

	switch fileType {
	case "dds":
		checkDDS(data, r)
	case "xma", "wav":
		checkRIFF(data, r.Size, r)
	case "nif", "kf", "egm", "egt":
		checkGamebryo(data, r)
	case "bik":
		checkBik(data, r.Size, r)
	case "esp", "esm":
		checkPlugin(data, r)
	case "lip":
		checkMagic(data, "LIPS", "Lip-sync file", r)
	case "sdt":
		checkMagic(data, "SDAT", "Shader data", r)
	case "fnt":
		checkFNT(data, r)
	case "tex":
		checkMagic(data, "TEXI", "Texture info", r)
	case "bsa":
		checkBSA(data, r.Size, r)
	case "mp3":
		checkMP3(data, r)
	case "ogg":
		checkOgg(data, r)
	case "script_scn":
		checkScript(path, r)
	case "zlib_stream", "gzip_stream":
		r.Info["note"] = "decoded stream, no further structural check"
		r.Valid = true
	default:
		r.Info["note"] = "no type-specific check registered"
		r.Valid = true
	}

	return r
}

func readU32LE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), true
}

func readU32BE(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off : off+4]), true
}

func checkDDS(data []byte, r *Result) {
	if len(data) < 128 {
		r.issue("file too small for DDS header")
		return
	}
	if string(data[0:4]) != "DDS " {
		r.issue("invalid DDS magic bytes")
		return
	}

	headerSize, _ := readU32LE(data, 4)
	height, _ := readU32LE(data, 12)
	width, _ := readU32LE(data, 16)

	if headerSize != 124 || height == 0 || width == 0 || height > 16384 || width > 16384 {
		headerSize, _ = readU32BE(data, 4)
		height, _ = readU32BE(data, 12)
		width, _ = readU32BE(data, 16)
	}

	if headerSize != 124 {
		r.issue("invalid header size: %d (expected 124)", headerSize)
	}
	switch {
	case height == 0 || width == 0:
		r.issue("invalid dimensions: %dx%d", width, height)
	case height > 16384 || width > 16384:
		r.issue("suspicious dimensions: %dx%d", width, height)
	default:
		r.Info["width"] = strconv.FormatInt(int64(width), 10)
		r.Info["height"] = strconv.FormatInt(int64(height), 10)
		r.Info["fourcc"] = cleanASCII(data[84:88])
		if len(r.Issues) == 0 {
			r.Valid = true
		}
	}
}

func checkRIFF(data []byte, fileSize int64, r *Result) {
	if len(data) < 12 {
		r.issue("file too small for RIFF header")
		return
	}
	if string(data[0:4]) != "RIFF" {
		r.issue("invalid RIFF magic bytes")
		return
	}
	chunkSize, _ := readU32LE(data, 4)
	r.Info["format"] = cleanASCII(data[8:12])
	declared := int64(chunkSize)
	r.Info["declared_size"] = strconv.FormatInt(declared, 10)
	if declared != fileSize {
		r.issue("size mismatch: declared %d, actual %d", declared, fileSize)
		return
	}
	r.Valid = true
}

func checkGamebryo(data []byte, r *Result) {
	const magic = "Gamebryo File Format"
	if len(data) < 40 {
		r.issue("file too small for Gamebryo header")
		return
	}
	if !bytes.HasPrefix(data, []byte(magic)) {
		r.issue("invalid Gamebryo magic bytes")
		return
	}
	versionStart := len(magic)
	searchEnd := versionStart + 40
	if searchEnd > len(data) {
		searchEnd = len(data)
	}
	nullPos := bytes.IndexByte(data[versionStart:searchEnd], 0)
	if nullPos == -1 {
		r.issue("could not find version string")
		return
	}
	r.Info["version"] = cleanASCII(data[versionStart : versionStart+nullPos])
	r.Valid = true
}

func checkBik(data []byte, fileSize int64, r *Result) {
	if len(data) < 8 {
		r.issue("file too small for BIK header")
		return
	}
	if string(data[0:4]) != "BIKi" {
		r.issue("invalid BIK magic bytes")
		return
	}
	sz, _ := readU32LE(data, 4)
	declared := int64(sz)
	r.Info["declared_size"] = strconv.FormatInt(declared, 10)
	if declared != fileSize {
		r.issue("size mismatch: declared %d, actual %d", declared, fileSize)
		return
	}
	r.Valid = true
}

func checkPlugin(data []byte, r *Result) {
	if len(data) < 24 {
		r.issue("file too small for plugin header")
		return
	}
	if string(data[0:4]) != "TES4" {
		r.issue("invalid TES4 magic bytes")
		return
	}
	flags, _ := readU32LE(data, 8)
	if flags&0x01 != 0 {
		r.Info["type"] = "TES4 master plugin"
	} else {
		r.Info["type"] = "TES4 plugin"
	}
	r.Valid = true
}

func checkMagic(data []byte, magic, label string, r *Result) {
	if len(data) < len(magic) {
		r.issue("file too small for %s header", label)
		return
	}
	if string(data[0:len(magic)]) != magic {
		r.issue("invalid %s magic bytes", label)
		return
	}
	r.Info["type"] = label
	r.Valid = true
}

func checkFNT(data []byte, r *Result) {
	want := []byte{0x00, 0x01, 0x00, 0x00}
	if len(data) < 4 {
		r.issue("file too small for FNT header")
		return
	}
	if !bytes.Equal(data[0:4], want) {
		r.issue("invalid FNT magic bytes")
		return
	}
	r.Info["type"] = "Font file"
	r.Valid = true
}

func checkBSA(data []byte, fileSize int64, r *Result) {
	if len(data) < 36 {
		r.issue("file too small for BSA header")
		return
	}
	if string(data[0:4]) != "BSA\x00" {
		r.issue("invalid BSA magic bytes")
		return
	}
	version, _ := readU32LE(data, 4)
	folderRecordOffset, _ := readU32LE(data, 8)
	folderCount, _ := readU32LE(data, 16)
	fileCount, _ := readU32LE(data, 20)

	r.Info["version"] = strconv.FormatInt(int64(version), 10)
	r.Info["folders"] = strconv.FormatInt(int64(folderCount), 10)
	r.Info["files"] = strconv.FormatInt(int64(fileCount), 10)

	if folderCount > 10000 {
		r.issue("suspicious folder count: %d", folderCount)
	}
	if fileCount > 100000 {
		r.issue("suspicious file count: %d", fileCount)
	}
	if int64(folderRecordOffset) < 36 || int64(folderRecordOffset) > fileSize {
		r.issue("invalid folder offset: %d", folderRecordOffset)
	}
	r.Valid = len(r.Issues) == 0
}

func checkMP3(data []byte, r *Result) {
	if len(data) < 4 {
		r.issue("file too small for MP3 header")
		return
	}
	syncs := [][2]byte{{0xFF, 0xFB}, {0xFF, 0xFA}, {0xFF, 0xF3}, {0xFF, 0xF2}}
	matched := false
	for _, s := range syncs {
		if data[0] == s[0] && data[1] == s[1] {
			matched = true
			break
		}
	}
	if !matched {
		r.issue("invalid MP3 sync bytes")
		return
	}
	versions := []string{"MPEG 2.5", "Reserved", "MPEG 2", "MPEG 1"}
	layers := []string{"Reserved", "Layer III", "Layer II", "Layer I"}
	mpegVersion := (data[1] >> 3) & 0x3
	layer := (data[1] >> 1) & 0x3
	r.Info["mpeg_version"] = versions[mpegVersion]
	r.Info["layer"] = layers[layer]
	r.Valid = true
}

func checkOgg(data []byte, r *Result) {
	if len(data) < 27 {
		r.issue("file too small for OGG header")
		return
	}
	if string(data[0:4]) != "OggS" {
		r.issue("invalid OggS magic bytes")
		return
	}
	version := data[4]
	r.Info["version"] = strconv.FormatInt(int64(version), 10)
	if version != 0 {
		r.issue("unknown OGG version: %d", version)
		return
	}
	r.Valid = true
}

func checkScript(path string, r *Result) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.issue("error reading script: %v", err)
		return
	}
	content := string(data)

	hasScriptName := strings.Contains(content, "ScriptName") || strings.Contains(content, "scn ")
	hasBegin := strings.Contains(content, "Begin") || strings.Contains(content, "begin")
	hasEnd := strings.Contains(content, "\nEnd") || strings.Contains(content, "\nend") || strings.Contains(content, "\nEND")

	if !hasScriptName {
		r.issue("no ScriptName found")
	}
	if hasBegin && !hasEnd {
		r.issue("Begin found but no End")
	}

	beginCount := strings.Count(content, "Begin") + strings.Count(content, "begin")
	endCount := strings.Count(content, "\nEnd") + strings.Count(content, "\nend") + strings.Count(content, "\nEND")
	r.Info["begin_blocks"] = strconv.FormatInt(int64(beginCount), 10)
	r.Info["end_blocks"] = strconv.FormatInt(int64(endCount), 10)
	if beginCount != endCount {
		r.issue("mismatched Begin/End: %d Begin, %d End", beginCount, endCount)
	}

	r.Valid = hasScriptName && (!hasBegin || hasEnd)
}

func cleanASCII(b []byte) string {
	out := make([]rune, 0, len(b))
	for _, c := range b {
		if c >= 0x20 && c < 0x7F {
			out = append(out, rune(c))
		}
	}
	return string(out)
}

