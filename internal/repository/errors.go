package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 一意制約にぶつかった
var ErrDuplicate = errors.New("duplicate")
