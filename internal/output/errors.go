package output

import "errors"

// ErrUnsupportedFormat is returned when a file format other than json or
// csv is requested.
var ErrUnsupportedFormat = errors.New("unsupported format")
