package handlers

import (
	"net/http"
	"time"

	"github.com/academictracker/api/internal/httpapi"
	authmiddleware "github.com/academictracker/api/internal/httpapi/middleware"
	"github.com/google/uuid"
)

// owner resolves the authenticated user every resource query is scoped to.
func owner(r *http.Request) (uuid.UUID, error) {
	id, ok := authmiddleware.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, httpapi.Unauthorized("unauthorized", "missing auth context")
	}
	return id, nil
}

// ownerAndID resolves the caller and the {id} path parameter.
func ownerAndID(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := owner(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := httpapi.URLParamUUID(r, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &httpapi.Error{Status: http.StatusBadRequest, Code: "invalid_query", Message: name + " must be an RFC3339 timestamp", Err: err}
	}
	return &t, nil
}
