package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	response := ErrorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		slog.Default().Error("failed to encode error response", "code", appErr.Code, "error", encErr)
	}
}
