package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"dogfordate/pkg/auth"
	"dogfordate/pkg/config"
	apperrors "dogfordate/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// DecodeJSON reads a single JSON object from the body, rejecting unknown
// fields and trailing data.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.New(apperrors.CodePayloadTooLarge, "request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body is empty")
		default:
			return apperrors.InvalidInput(fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

// CurrentAccount returns the authenticated account or an UNAUTHORIZED error.
func CurrentAccount(r *http.Request) (auth.Account, error) {
	acc, ok := auth.AccountFromContext(r.Context())
	if !ok {
		return auth.Account{}, apperrors.Unauthorized("Authentication required")
	}
	return acc, nil
}

// QueryList reads a repeated or comma-separated query parameter.
func QueryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// QueryFloat parses an optional float parameter; absent yields nil.
func QueryFloat(r *http.Request, key string) (*float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", key, s))
	}
	return &v, nil
}
