package hive

import "errors"

// SkipKey is returned by a Walk callback to skip the current key's children.
var SkipKey = errors.New("skip this key")
