package signature

// All is the closed set of registered descriptors, in the order the
// carver tries them against a candidate offset. Every descriptor is tried
// at each offset where one of its magics occurs; descriptors sharing a
// magic (xma/wav, esp/esm) are told apart by their Validators. Among
// matches with the same offset and size, the earlier descriptor in this
// list is the one containment keeps.
var All = []Descriptor{
	ddsDescriptor,
	xmaDescriptor,
	wavDescriptor,
	bikDescriptor,
	peDescriptor,
	bsaDescriptor,
	espDescriptor,
	esmDescriptor,
	nifDescriptor,
	kfDescriptor,
	egmDescriptor,
	egtDescriptor,
	scriptDescriptor,
	mp3Descriptor,
	oggDescriptor,
	zlibStreamDescriptor,
	gzipStreamDescriptor,
	lipDescriptor,
	sdtDescriptor,
	fntDescriptor,
	texDescriptor,
}

// ByName indexes All for lookup by descriptor name, e.g. from config
// (enabling/disabling specific formats) or from test fixtures.
var ByName = func() map[string]Descriptor {
	m := make(map[string]Descriptor, len(All))
	for _, d := range All {
		m[d.Name] = d
	}
	return m
}()

// MaxMagicLen returns the longest magic pattern across every registered
// descriptor. The carver uses it to size the overlap window between scan
// chunks: a magic straddling a chunk boundary is only guaranteed to be
// caught if the overlap is at least this long.
func MaxMagicLen() int {
	max := 0
	for _, d := range All {
		if l := d.MaxMagicLen(); l > max {
			max = l
		}
	}
	return max
}
