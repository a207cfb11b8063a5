package carver

const (
	DefaultChunkSize       = 10 * 1024 * 1024
	DefaultMaxFilesPerType = 10_000

	// headerLookahead covers the longest fixed-offset field any size-finder
	// reads relative to its magic before it re-reads its own window (DDS's
	// 128-byte header is the largest of these).
	headerLookahead = 128
)

// Options configures a single CarveDump run.
type Options struct {
	// ChunkSize is the scan buffer size in bytes. 0 selects DefaultChunkSize.
	ChunkSize int64
	// MaxFilesPerType caps how many records of a single file_type are kept.
	// 0 selects DefaultMaxFilesPerType.
	MaxFilesPerType int
	// OutputDir is the root output directory; files land under
	// <OutputDir>/<dump_stem>/<file_type>/<filename>.
	OutputDir string
	// Types restricts the registry to these descriptor names. Empty means
	// all registered formats.
	Types []string
	// Workers sets how many goroutines resolve candidates (Validator +
	// SizeFinder) concurrently. 0 or 1 means sequential resolution. The
	// chunk scan itself is always sequential.
	Workers int
	// Progress, when set, is invoked after every chunk with the current
	// scan offset and the dump's total size — the hook progressui drives
	// an interactive bar from, independent of the logrus Debug cadence.
	Progress func(offset, total int64)
}

func (o Options) chunkSize() int64 {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o Options) maxFilesPerType() int {
	if o.MaxFilesPerType > 0 {
		return o.MaxFilesPerType
	}
	return DefaultMaxFilesPerType
}
