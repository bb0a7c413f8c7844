package annotate

import "errors"

// ErrLocales means the embedded message files could not be loaded.
var ErrLocales = errors.New("load annotation locales")
