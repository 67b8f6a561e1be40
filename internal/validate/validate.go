// Package validate provides a single shared go-playground/validator
// instance. The library's own docs recommend caching one validator per
// application rather than constructing it per call, since it builds and
// caches struct metadata internally.
package validate

import "github.com/go-playground/validator/v10"

var instance = validator.New()

// Struct validates v against its `validate` struct tags.
func Struct(v interface{}) error {
	return instance.Struct(v)
}
