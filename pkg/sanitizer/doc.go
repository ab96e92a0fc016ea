// Package sanitizer normalizes user-supplied text before it is validated and
// stored.
//
// All functions are idempotent. Invalid input yields an empty value rather
// than an error; validation decides whether empty is acceptable.
//
// Normalization includes:
//   - Display text (dog names, breeds, cities): trim and collapse whitespace
//   - Enumerations (size, activity level, personality): case-insensitive match to the canonical spelling
//   - Free text (notes, descriptions, message content): trim, drop control characters, keep line breaks
//   - Image URLs: enforce https, lowercase the host, drop tracking parameters
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
