// Package ptr builds pointers to literal values for optional record fields.
package ptr

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}
