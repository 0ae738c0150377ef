package types

// UnixMilli is a millisecond-resolution unix timestamp used on wire and
// audit payloads.
type UnixMilli int64
