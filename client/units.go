package client

// BytesPerSec is a transfer rate cap. Zero means unlimited.
type BytesPerSec uint64

// BytesOffset is a position within the transferred data.
type BytesOffset uint64

// FileSize is the full size of an upload source.
type FileSize uint64
