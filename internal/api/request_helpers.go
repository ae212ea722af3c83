package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/domain"
)

// dateOnlyLayout is accepted for startDate and endDate next to RFC 3339.
const dateOnlyLayout = "2006-01-02"

// getPathUUID extracts a UUID from the URL path parameters.
// It parses and validates the UUID, handling common error cases.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// parseTaskFilter reads the listing filter from the query string.
//
// Enumerations are matched case-insensitively. Unparsable page and limit
// values fall back to their defaults like out-of-range ones do. A date-only
// endDate covers that whole day (UTC).
func parseTaskFilter(q url.Values) (domain.TaskFilter, error) {
	var f domain.TaskFilter

	if raw := q.Get("status"); raw != "" {
		s, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return f, domain.NewValidationError("status", "has an unknown value", err)
		}
		f.Status = &s
	}
	if raw := q.Get("priority"); raw != "" {
		p, err := domain.ParseTaskPriority(raw)
		if err != nil {
			return f, domain.NewValidationError("priority", "has an unknown value", err)
		}
		f.Priority = &p
	}
	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, domain.NewValidationError("userId", "has invalid format", domain.ErrInvalidID)
		}
		f.UserID = &id
	}

	f.Search = strings.TrimSpace(q.Get("search"))

	var err error
	if f.StartDate, err = parseDateParam(q, "startDate", false); err != nil {
		return f, err
	}
	if f.EndDate, err = parseDateParam(q, "endDate", true); err != nil {
		return f, err
	}

	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = n
	}

	return f, nil
}

func parseDateParam(q url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an ISO 8601 date", domain.ErrValidation)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return &t, nil
}
